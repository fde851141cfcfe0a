// Package ikarm is a Viam generic service that solves the inverse kinematics of a
// 4-DOF arm (base yaw, shoulder, elbow, wrist pitch) and hands the solved joint
// positions to an arm component.
package ikarm

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"
	"go.viam.com/rdk/spatialmath"

	"ikarm/kinematics"
)

// Model is the Viam model of the inverse kinematics service.
var Model = resource.NewModel("devrel", "kinematics", "ik-4dof")

var errNoArm = errors.New("no arm configured")

// searchKeys are the MoveToPoint extras consumed here and not passed on to the arm.
var searchKeys = []string{"pitch", "preferred_pitch", "pitch_low", "pitch_high", "step"}

func init() {
	resource.RegisterService(generic.API, Model,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newIKService,
		},
	)
}

// jointMover is the part of arm.Arm the service drives.
type jointMover interface {
	MoveToJointPositions(ctx context.Context, positions []referenceframe.Input, extra map[string]interface{}) error
}

// Service solves target points against a kinematic model and optionally moves an arm there.
type Service struct {
	resource.Named
	resource.AlwaysRebuild

	logger logging.Logger
	cfg    *Config
	model  *kinematics.Model
	search searchParams

	armName  string
	arm      jointMover
	moveLock sync.Mutex

	watchers  *WatcherRegistry
	watchPath string
}

func newIKService(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (resource.Resource, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	return NewService(ctx, deps, conf.ResourceName(), cfg, logger)
}

// NewService builds the service, resolving the configured arm from deps.
func NewService(ctx context.Context, deps resource.Dependencies, name resource.Name, cfg *Config, logger logging.Logger) (*Service, error) {
	var mover jointMover
	if cfg.Arm != "" {
		a, err := arm.FromDependencies(deps, cfg.Arm)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get arm %q", cfg.Arm)
		}
		logger.Infof("Using arm %q for solved joint positions", cfg.Arm)
		mover = a
	}
	return newService(name, cfg, mover, logger)
}

func newService(name resource.Name, cfg *Config, mover jointMover, logger logging.Logger) (*Service, error) {
	links, _ := cfg.LoadLinkLengths(logger)
	model, err := kinematics.NewModel(links, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kinematic model")
	}

	s := &Service{
		Named:   name.AsNamed(),
		logger:  logger,
		cfg:     cfg,
		model:   model,
		search:  cfg.searchParams(),
		armName: cfg.Arm,
		arm:     mover,
	}

	if cfg.WatchLinksFile {
		path := cfg.linksFilePath()
		if err := globalWatchers.Acquire(path, model, logger); err != nil {
			return nil, err
		}
		s.watchers = globalWatchers
		s.watchPath = path
	}

	return s, nil
}

// KinematicModel returns the model whose link lengths the service solves against.
func (s *Service) KinematicModel() *kinematics.Model {
	return s.model
}

// Solve solves a single target pose with the current link lengths.
func (s *Service) Solve(target kinematics.TargetPose) (kinematics.JointAngles, error) {
	return s.model.Solve(target)
}

// Search finds the feasible pitch closest to the configured preference.
func (s *Service) Search(point r3.Vector) (kinematics.Solution, error) {
	return s.searchWith(point, s.search)
}

func (s *Service) searchWith(point r3.Vector, p searchParams) (kinematics.Solution, error) {
	return s.model.SearchRangeFromPreference(point, p.preferred, p.low, p.high, p.step)
}

// MoveToPoint searches for a pitch reaching pose's point and moves the arm to the
// solution. A "pitch" entry in extra solves that pitch exactly instead of searching;
// "preferred_pitch", "pitch_low", "pitch_high" and "step" override the configured search.
func (s *Service) MoveToPoint(ctx context.Context, pose spatialmath.Pose, extra map[string]interface{}) (kinematics.Solution, error) {
	if s.arm == nil {
		return kinematics.Solution{}, errNoArm
	}

	point := pose.Point()
	var sol kinematics.Solution
	pitch, hasPitch, err := floatArg(extra, "pitch")
	if err != nil {
		return kinematics.Solution{}, err
	}
	if hasPitch {
		angles, err := s.model.Solve(kinematics.TargetPose{Point: point, Pitch: pitch})
		if err != nil {
			return kinematics.Solution{}, err
		}
		sol = kinematics.Solution{Angles: angles, Pitch: pitch}
	} else {
		params, err := s.search.withOverrides(extra)
		if err != nil {
			return kinematics.Solution{}, err
		}
		if sol, err = s.searchWith(point, params); err != nil {
			return kinematics.Solution{}, err
		}
	}

	if err := s.moveJoints(ctx, sol.Angles, lo.OmitByKeys(extra, searchKeys)); err != nil {
		return kinematics.Solution{}, err
	}
	return sol, nil
}

func (s *Service) moveJoints(ctx context.Context, angles kinematics.JointAngles, extra map[string]interface{}) error {
	inputs := []referenceframe.Input(angles.Radians())

	s.moveLock.Lock()
	defer s.moveLock.Unlock()

	s.logger.Debugf("Moving arm %q to %+v", s.armName, angles)
	if err := s.arm.MoveToJointPositions(ctx, inputs, extra); err != nil {
		return errors.Wrapf(err, "failed to move arm %q", s.armName)
	}
	return nil
}

// Close stops watching the links file.
func (s *Service) Close(ctx context.Context) error {
	if s.watchers == nil {
		return nil
	}
	return s.watchers.Release(s.watchPath, s.model)
}
