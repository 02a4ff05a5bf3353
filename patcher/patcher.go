// Package patcher rewrites the architecture and deployment-target build
// settings of Xcode projects.
//
// Rules are data: Evaluate runs an ordered rule list against a copy of one
// configuration's settings and reports what changed. Patcher applies those
// results to a project and saves it when anything changed.
package patcher

import (
	"go.uber.org/zap"

	"github.com/soapywu/xbar/pbxproj"
)

// Project is the part of *pbxproj.PbxProject the patcher needs.
type Project interface {
	Path() string
	BuildConfigurations() []*pbxproj.BuildConfiguration
	Save(options ...pbxproj.PbxWriterOption) error
}

type ConfigurationResult struct {
	Name    string
	Target  string
	Changes []Change
}

type ProjectResult struct {
	Path string
	// Configurations holds only the configurations that changed.
	Configurations []ConfigurationResult
	Written        bool
	Err            error
}

func (r ProjectResult) Changed() bool {
	return len(r.Configurations) > 0
}

type Patcher struct {
	rules        []Rule
	params       Params
	logger       *zap.Logger
	writeOptions []pbxproj.PbxWriterOption
}

func New(rules []Rule, params Params, logger *zap.Logger, writeOptions ...pbxproj.PbxWriterOption) *Patcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Patcher{
		rules:        rules,
		params:       params,
		logger:       logger,
		writeOptions: writeOptions,
	}
}

func (p *Patcher) Params() Params {
	return p.params
}

// PatchProject evaluates every configuration of project and writes the
// project once if at least one of them changed. A failed write is logged and
// returned in the result.
func (p *Patcher) PatchProject(project Project) ProjectResult {
	result := ProjectResult{Path: project.Path()}
	log := p.logger.With(zap.String("path", project.Path()))
	log.Info("Reading project")

	for _, config := range project.BuildConfigurations() {
		res := Evaluate(p.rules, p.params, Settings(config.Settings()))
		if !res.Changed() {
			continue
		}

		applied := map[string]bool{}
		for _, change := range res.Changes {
			log.Info("Updating build setting",
				zap.String("configuration", config.Name),
				zap.String("target", config.TargetName),
				zap.String("rule", change.Rule),
				zap.String("key", change.Key),
				zap.String("old", change.Old),
				zap.String("new", change.New))
			if !applied[change.Key] {
				config.SetSetting(change.Key, res.Settings[change.Key])
				applied[change.Key] = true
			}
		}
		result.Configurations = append(result.Configurations, ConfigurationResult{
			Name:    config.Name,
			Target:  config.TargetName,
			Changes: res.Changes,
		})
	}

	if !result.Changed() {
		log.Debug("No changes needed")
		return result
	}

	if err := project.Save(p.writeOptions...); err != nil {
		log.Error("Failed to save changes", zap.Error(err))
		result.Err = err
		return result
	}
	result.Written = true
	for _, config := range result.Configurations {
		log.Info("Saved changes",
			zap.String("configuration", config.Name),
			zap.String("target", config.Target))
	}
	return result
}
