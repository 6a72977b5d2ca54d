// Package steps holds the concrete pipeline stages. Each stage is one
// transformation over a volume with statically declared success and
// failure transitions; a stage that hits an error records it on itself
// and returns rather than propagating across the runner boundary. Every
// stage's defining file registers it from an init hook.
package steps

import (
	"github.com/sirupsen/logrus"

	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/results"
	"github.com/dlps/feed/pkg/volume"
)

// stage is the common base embedded by every concrete stage. It carries
// the volume, the declared transitions and the failure record.
type stage struct {
	volume      *volume.Volume
	name        string
	description string
	info        api.StageInfo

	err error
}

func newStage(v *volume.Volume, name, description string, info api.StageInfo) stage {
	return stage{volume: v, name: name, description: description, info: info}
}

func (s *stage) Name() string        { return s.name }
func (s *stage) Description() string { return s.description }
func (s *stage) Info() api.StageInfo { return s.info }
func (s *stage) Failed() bool        { return s.err != nil }
func (s *stage) Err() error          { return s.err }

// CleanAlways, CleanSuccess and CleanFailure default to no-ops; stages
// with teardown work shadow them.
func (s *stage) CleanAlways() error  { return nil }
func (s *stage) CleanSuccess() error { return nil }
func (s *stage) CleanFailure() error { return nil }

// fail records the stage's error, logs it, and returns false so callers
// can `return s.fail(err)` out of Run.
func (s *stage) fail(err error) bool {
	s.err = err
	entry := s.logger().WithError(err)
	for key, value := range results.FieldsFor(err) {
		entry = entry.WithField(key, value)
	}
	entry.Warnf("stage %s failed: %s", s.name, results.ReasonFor(err))
	return false
}

// succeed logs completion and returns true.
func (s *stage) succeed() bool {
	s.logger().Infof("stage %s succeeded", s.name)
	return true
}

func (s *stage) setInfo(msg string) {
	s.logger().Info(msg)
}

func (s *stage) logger() *logrus.Entry {
	return s.volume.Logger().WithField("stage", s.name)
}
