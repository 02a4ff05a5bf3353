/**
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
'License'); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
'AS IS' BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

package pbxproj

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soapywu/xbar/pbxparser"
)

const (
	BundleExtension = ".xcodeproj"
	ProjectFileName = "project.pbxproj"
)

// target sections that own a buildConfigurationList
var targetSections = []string{"PBXNativeTarget", "PBXAggregateTarget", "PBXLegacyTarget"}

type PbxProject struct {
	filePath                       string
	name                           string
	pbxContents                    pbxparser.Object
	topProjectSection              pbxparser.Object
	pbxObjectSection               pbxparser.Object
	pbxProjectSection              pbxparser.Object
	pbxXCBuildConfigurationSection pbxparser.Object
	pbxXCConfigurationListSection  pbxparser.Object
}

// ResolvePath maps a .xcodeproj bundle to its project.pbxproj. Any other
// path is returned unchanged.
func ResolvePath(path string) string {
	clean := filepath.Clean(path)
	if strings.HasSuffix(clean, BundleExtension) {
		return filepath.Join(clean, ProjectFileName)
	}
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return filepath.Join(clean, ProjectFileName)
	}
	return clean
}

// projectName is the bundle name without its extension, which is how Xcode
// names the project.
func projectName(filePath string) string {
	dir := filepath.Base(filepath.Dir(filePath))
	if strings.HasSuffix(dir, BundleExtension) {
		return strings.TrimSuffix(dir, BundleExtension)
	}
	return strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
}

func NewPbxProject(path string) PbxProject {
	filePath := ResolvePath(path)
	return PbxProject{
		filePath: filePath,
		name:     projectName(filePath),
	}
}

// Open resolves path and parses the project it names.
func Open(path string) (*PbxProject, error) {
	project := NewPbxProject(path)
	if err := project.Parse(); err != nil {
		return nil, err
	}
	return &project, nil
}

func (p *PbxProject) Path() string {
	return p.filePath
}

func (p *PbxProject) Name() string {
	return p.name
}

func (p *PbxProject) Contents() pbxparser.Object {
	return p.pbxContents
}

func (p *PbxProject) Parse() error {
	file, err := os.Open(p.filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	return p.ParseFrom(file)
}

func (p *PbxProject) ParseFrom(r io.Reader) error {
	contents, err := pbxparser.ParseReader(p.filePath, r)
	if err != nil {
		return err
	}
	if contents.GetObject("project").IsEmpty() {
		return fmt.Errorf("%s: empty project", p.filePath)
	}
	p.pbxContents = contents
	p.initSections()
	return nil
}

// Save writes the project back to the path it was read from.
func (p *PbxProject) Save(options ...PbxWriterOption) error {
	return NewPbxWriter(p, options...).Write(p.filePath)
}

func (p *PbxProject) Dump(writer io.Writer) error {
	buffer := bytes.NewBuffer([]byte{})
	jsonEncoder := json.NewEncoder(buffer)
	jsonEncoder.SetEscapeHTML(false)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(p.Contents()); err != nil {
		return err
	}
	_, err := writer.Write(buffer.Bytes())
	return err
}

func (p *PbxProject) initSections() {
	p.topProjectSection = p.pbxContents.GetObject("project")
	p.pbxObjectSection = p.topProjectSection.GetObject("objects")
	p.pbxProjectSection = p.pbxObjectSection.GetObject("PBXProject")
	p.pbxXCBuildConfigurationSection = p.pbxObjectSection.GetObject("XCBuildConfiguration")
	p.pbxXCConfigurationListSection = p.pbxObjectSection.GetObject("XCConfigurationList")
}

// BuildConfigurations lists every XCBuildConfiguration in document order.
func (p *PbxProject) BuildConfigurations() []*BuildConfiguration {
	owners := p.configurationOwners()

	var configs []*BuildConfiguration
	p.pbxXCBuildConfigurationSection.ForeachWithFilter(func(uuid string, val interface{}) pbxparser.IterateActionType {
		if !isObject(val) {
			return pbxparser.IterateActionContinue
		}
		configs = append(configs, newBuildConfiguration(uuid, toObject(val), owners[uuid]))
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	return configs
}

// configurationOwners maps a configuration uuid to the name of the target, or
// project, whose configuration list contains it.
func (p *PbxProject) configurationOwners() map[string]string {
	listOwner := map[string]string{}
	for _, sectionName := range targetSections {
		p.pbxObjectSection.GetObject(sectionName).ForeachWithFilter(func(_ string, val interface{}) pbxparser.IterateActionType {
			if isObject(val) {
				target := toObject(val)
				listOwner[target.GetString("buildConfigurationList")] = pbxparser.Unquote(target.GetString("name"))
			}
			return pbxparser.IterateActionContinue
		}, nonCommentsFilter)
	}
	p.pbxProjectSection.ForeachWithFilter(func(_ string, val interface{}) pbxparser.IterateActionType {
		if isObject(val) {
			listOwner[toObject(val).GetString("buildConfigurationList")] = p.name
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)

	owners := map[string]string{}
	p.pbxXCConfigurationListSection.ForeachWithFilter(func(listUUID string, val interface{}) pbxparser.IterateActionType {
		if !isObject(val) {
			return pbxparser.IterateActionContinue
		}
		owner, found := listOwner[listUUID]
		if !found {
			return pbxparser.IterateActionContinue
		}
		for _, configUUID := range arrayValues(toObject(val).ForceGet("buildConfigurations")) {
			owners[configUUID] = owner
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	return owners
}

func (p *PbxProject) pbxTargetByName(name string) (target pbxparser.ObjectWithUUID) {
	for _, sectionName := range targetSections {
		p.pbxObjectSection.GetObject(sectionName).ForeachWithFilter(func(uuid string, val interface{}) pbxparser.IterateActionType {
			if isObject(val) && pbxparser.Unquote(toObject(val).GetString("name")) == name {
				target = pbxparser.ObjectWithUUID{Object: toObject(val), UUID: uuid}
				return pbxparser.IterateActionBreak
			}
			return pbxparser.IterateActionContinue
		}, nonCommentsFilter)
		if target.UUID != "" {
			return
		}
	}
	return
}

// filterConfigurations returns configurations matching build (configuration
// name) and targetName; empty arguments match everything.
func (p *PbxProject) filterConfigurations(build, targetName string) []*BuildConfiguration {
	var result []*BuildConfiguration
	for _, config := range p.BuildConfigurations() {
		if build != "" && config.Name != build {
			continue
		}
		if targetName != "" && config.TargetName != targetName {
			continue
		}
		result = append(result, config)
	}
	return result
}

// GetBuildProperty returns the value of prop in the first configuration
// matching build and targetName.
func (p *PbxProject) GetBuildProperty(prop, build, targetName string) (string, bool) {
	for _, config := range p.filterConfigurations(build, targetName) {
		if value, ok := config.Setting(prop); ok {
			return value, true
		}
	}
	return "", false
}

// UpdateBuildProperty sets prop in every configuration matching build and
// targetName and reports how many were touched.
func (p *PbxProject) UpdateBuildProperty(prop, value, build, targetName string) int {
	configs := p.filterConfigurations(build, targetName)
	for _, config := range configs {
		config.SetSetting(prop, value)
	}
	return len(configs)
}

func (p *PbxProject) HasTarget(name string) bool {
	return p.pbxTargetByName(name).UUID != ""
}
