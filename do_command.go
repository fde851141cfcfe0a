package ikarm

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/rdk/spatialmath"

	"ikarm/kinematics"
)

// DoCommand handles the service's commands:
//
//	get_link_lengths
//	set_link_lengths  l1, l2, l3, l4
//	save_link_lengths write the current lengths to links_file
//	solve             x, y, z, pitch
//	search            x, y, z [preferred_pitch, pitch_low, pitch_high, step]
//	                  or x, y, z, start, end [step] for a first-fit scan
//	move_to           x, y, z [pitch | search overrides]
func (s *Service) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	command, ok := cmd["command"].(string)
	if !ok {
		return nil, errors.New("command must be a string")
	}

	switch command {
	case "get_link_lengths":
		return linkLengthsResponse(s.model.LinkLengths()), nil

	case "set_link_lengths":
		return s.setLinkLengths(cmd)

	case "save_link_lengths":
		return s.saveLinkLengths()

	case "solve":
		return s.solveCommand(cmd)

	case "search":
		return s.searchCommand(cmd)

	case "move_to":
		return s.moveToCommand(ctx, cmd)

	default:
		return nil, errors.Errorf("unknown command: %s", command)
	}
}

func (s *Service) setLinkLengths(cmd map[string]interface{}) (map[string]interface{}, error) {
	var values [4]float64
	for i, key := range []string{"l1", "l2", "l3", "l4"} {
		v, err := requiredFloat(cmd, key)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	links := kinematics.LinkLengths{L1: values[0], L2: values[1], L3: values[2], L4: values[3]}
	if err := s.model.SetLinkLengths(links); err != nil {
		return nil, err
	}
	s.logger.Infof("Link lengths set to %v", links)
	return linkLengthsResponse(links), nil
}

func (s *Service) saveLinkLengths() (map[string]interface{}, error) {
	path := s.cfg.linksFilePath()
	if path == "" {
		return nil, errors.New("links_file is not configured")
	}
	links := s.model.LinkLengths()
	if err := SaveLinkLengthsToFile(path, links); err != nil {
		return nil, err
	}
	s.logger.Infof("Saved link lengths to %s", path)
	resp := linkLengthsResponse(links)
	resp["path"] = path
	return resp, nil
}

func (s *Service) solveCommand(cmd map[string]interface{}) (map[string]interface{}, error) {
	point, err := pointArg(cmd)
	if err != nil {
		return nil, err
	}
	pitch, err := requiredFloat(cmd, "pitch")
	if err != nil {
		return nil, err
	}

	angles, err := s.model.Solve(kinematics.TargetPose{Point: point, Pitch: pitch})
	if reason, ok := kinematics.ReasonOf(err); ok {
		return map[string]interface{}{
			"solved": false,
			"reason": reason.String(),
			"error":  err.Error(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	resp := anglesResponse(angles)
	resp["solved"] = true
	return resp, nil
}

func (s *Service) searchCommand(cmd map[string]interface{}) (map[string]interface{}, error) {
	point, err := pointArg(cmd)
	if err != nil {
		return nil, err
	}

	start, hasStart, err := floatArg(cmd, "start")
	if err != nil {
		return nil, err
	}

	var sol kinematics.Solution
	var searchErr error
	if hasStart {
		end, err := requiredFloat(cmd, "end")
		if err != nil {
			return nil, err
		}
		step, _, err := floatArgOr(cmd, "step", s.search.step)
		if err != nil {
			return nil, err
		}
		sol, searchErr = s.model.SearchRange(point, start, end, step)
	} else {
		params, err := s.search.withOverrides(cmd)
		if err != nil {
			return nil, err
		}
		sol, searchErr = s.searchWith(point, params)
	}

	if errors.Is(searchErr, kinematics.ErrNotFound) {
		return map[string]interface{}{"found": false}, nil
	}
	if searchErr != nil {
		return nil, searchErr
	}
	return solutionResponse(sol), nil
}

func (s *Service) moveToCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	point, err := pointArg(cmd)
	if err != nil {
		return nil, err
	}
	extra := lo.OmitByKeys(cmd, []string{"command", "x", "y", "z"})
	sol, err := s.MoveToPoint(ctx, spatialmath.NewPoseFromPoint(point), extra)
	if err != nil {
		return nil, err
	}
	return solutionResponse(sol), nil
}

func (p searchParams) withOverrides(cmd map[string]interface{}) (searchParams, error) {
	var err error
	if p.preferred, _, err = floatArgOr(cmd, "preferred_pitch", p.preferred); err != nil {
		return p, err
	}
	if p.low, _, err = floatArgOr(cmd, "pitch_low", p.low); err != nil {
		return p, err
	}
	if p.high, _, err = floatArgOr(cmd, "pitch_high", p.high); err != nil {
		return p, err
	}
	if p.step, _, err = floatArgOr(cmd, "step", p.step); err != nil {
		return p, err
	}
	return p, nil
}

func linkLengthsResponse(links kinematics.LinkLengths) map[string]interface{} {
	return map[string]interface{}{
		"l1": links.L1,
		"l2": links.L2,
		"l3": links.L3,
		"l4": links.L4,
	}
}

func anglesResponse(angles kinematics.JointAngles) map[string]interface{} {
	return map[string]interface{}{
		"theta1":  angles.Theta1,
		"theta2":  angles.Theta2,
		"theta3":  angles.Theta3,
		"theta4":  angles.Theta4,
		"radians": angles.Radians(),
	}
}

func solutionResponse(sol kinematics.Solution) map[string]interface{} {
	resp := anglesResponse(sol.Angles)
	resp["found"] = true
	resp["pitch"] = sol.Pitch
	return resp
}

// floatArg reads a numeric argument. JSON numbers arrive as float64; Go callers may pass ints.
func floatArg(cmd map[string]interface{}, key string) (float64, bool, error) {
	raw, ok := cmd[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return 0, false, errors.Errorf("%s must be a number, got %T", key, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errors.Errorf("%s must be finite", key)
	}
	return v, true, nil
}

func floatArgOr(cmd map[string]interface{}, key string, def float64) (float64, bool, error) {
	v, ok, err := floatArg(cmd, key)
	if err != nil || !ok {
		return def, false, err
	}
	return v, true, nil
}

func requiredFloat(cmd map[string]interface{}, key string) (float64, error) {
	v, ok, err := floatArg(cmd, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Errorf("%s is required", key)
	}
	return v, nil
}

func pointArg(cmd map[string]interface{}) (r3.Vector, error) {
	var p r3.Vector
	var err error
	if p.X, err = requiredFloat(cmd, "x"); err != nil {
		return r3.Vector{}, err
	}
	if p.Y, err = requiredFloat(cmd, "y"); err != nil {
		return r3.Vector{}, err
	}
	if p.Z, err = requiredFloat(cmd, "z"); err != nil {
		return r3.Vector{}, err
	}
	return p, nil
}
