// Package main is a bench tool for the 4-DOF inverse kinematics solver. It works
// without an arm attached and prints solutions as tables.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/rdk/logging"

	"ikarm"
	"ikarm/kinematics"
)

const (
	flagL1        = "l1"
	flagL2        = "l2"
	flagL3        = "l3"
	flagL4        = "l4"
	flagLinksFile = "links-file"
	flagDebug     = "debug"

	flagX     = "x"
	flagY     = "y"
	flagZ     = "z"
	flagPitch = "pitch"

	flagPreferred = "preferred"
	flagLow       = "low"
	flagHigh      = "high"
	flagStep      = "step"
	flagFirstFit  = "first-fit"

	flagXMin        = "x-min"
	flagXMax        = "x-max"
	flagXStep       = "x-step"
	flagYMin        = "y-min"
	flagYMax        = "y-max"
	flagYStep       = "y-step"
	flagConcurrency = "concurrency"
)

func main() {
	logger := logging.NewLogger("ik-cli")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logger.Error(err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	pointFlags := []cli.Flag{
		&cli.Float64Flag{Name: flagX, Required: true, Usage: "target x"},
		&cli.Float64Flag{Name: flagY, Required: true, Usage: "target y"},
		&cli.Float64Flag{Name: flagZ, Required: true, Usage: "target z"},
	}

	return &cli.App{
		Name:  "ik",
		Usage: "solve joint angles for a 4-DOF arm",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: flagL1, Value: kinematics.DefaultLinkLengths.L1, Usage: "base to shoulder length"},
			&cli.Float64Flag{Name: flagL2, Value: kinematics.DefaultLinkLengths.L2, Usage: "shoulder to elbow length"},
			&cli.Float64Flag{Name: flagL3, Value: kinematics.DefaultLinkLengths.L3, Usage: "elbow to wrist length"},
			&cli.Float64Flag{Name: flagL4, Value: kinematics.DefaultLinkLengths.L4, Usage: "wrist to tip length"},
			&cli.PathFlag{Name: flagLinksFile, Usage: "JSON links file; overrides --l1..--l4"},
			&cli.BoolFlag{Name: flagDebug, Usage: "log rejected poses"},
		},
		Commands: []*cli.Command{
			{
				Name:  "solve",
				Usage: "solve a single point and pitch",
				Flags: append(pointFlags,
					&cli.Float64Flag{Name: flagPitch, Required: true, Usage: "gripper pitch in degrees"},
				),
				Action: solveAction,
			},
			{
				Name:  "search",
				Usage: "find the feasible pitch closest to a preference",
				Flags: append(pointFlags,
					&cli.Float64Flag{Name: flagPreferred, Value: ikarm.DefaultPreferredPitch, Usage: "preferred pitch"},
					&cli.Float64Flag{Name: flagLow, Value: ikarm.DefaultPitchLow, Usage: "lowest acceptable pitch"},
					&cli.Float64Flag{Name: flagHigh, Value: ikarm.DefaultPitchHigh, Usage: "highest acceptable pitch"},
					&cli.Float64Flag{Name: flagStep, Value: kinematics.DefaultPitchStep, Usage: "pitch step"},
					&cli.BoolFlag{Name: flagFirstFit, Usage: "scan from --low to --high and stop at the first solution"},
				),
				Action: searchAction,
			},
			{
				Name:  "survey",
				Usage: "list the reachable points of a horizontal grid",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagZ, Required: true, Usage: "grid height"},
					&cli.Float64Flag{Name: flagXMin, Value: -30},
					&cli.Float64Flag{Name: flagXMax, Value: 30},
					&cli.Float64Flag{Name: flagXStep, Value: 5},
					&cli.Float64Flag{Name: flagYMin, Value: 0},
					&cli.Float64Flag{Name: flagYMax, Value: 30},
					&cli.Float64Flag{Name: flagYStep, Value: 5},
					&cli.Float64Flag{Name: flagLow, Value: ikarm.DefaultPitchLow, Usage: "lowest pitch tried"},
					&cli.Float64Flag{Name: flagHigh, Value: ikarm.DefaultPitchHigh, Usage: "highest pitch tried"},
					&cli.Float64Flag{Name: flagStep, Value: kinematics.DefaultPitchStep, Usage: "pitch step"},
					&cli.IntFlag{Name: flagConcurrency, Usage: "rows evaluated at once (default GOMAXPROCS)"},
				},
				Action: surveyAction,
			},
			{
				Name:   "demo",
				Usage:  "solve the reference poses",
				Action: demoAction,
			},
		},
	}
}

func loggerFor(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("ik-cli")
	}
	return logging.NewLogger("ik-cli")
}

// modelFor builds a model from the global link flags, or from --links-file when given.
func modelFor(c *cli.Context) (*kinematics.Model, error) {
	links := kinematics.LinkLengths{
		L1: c.Float64(flagL1),
		L2: c.Float64(flagL2),
		L3: c.Float64(flagL3),
		L4: c.Float64(flagL4),
	}
	if path := c.Path(flagLinksFile); path != "" {
		var err error
		if links, err = ikarm.LoadLinkLengthsFromFile(path); err != nil {
			return nil, err
		}
	}
	return kinematics.NewModel(links, loggerFor(c))
}

func pointFor(c *cli.Context) r3.Vector {
	return r3.Vector{X: c.Float64(flagX), Y: c.Float64(flagY), Z: c.Float64(flagZ)}
}

func solveAction(c *cli.Context) error {
	model, err := modelFor(c)
	if err != nil {
		return err
	}
	target := kinematics.TargetPose{Point: pointFor(c), Pitch: c.Float64(flagPitch)}
	angles, err := model.Solve(target)
	if _, ok := kinematics.ReasonOf(err); !ok && err != nil {
		return err
	}
	renderSolve(c.App.Writer, model.LinkLengths(), target, angles, err)
	return nil
}

func searchAction(c *cli.Context) error {
	model, err := modelFor(c)
	if err != nil {
		return err
	}
	point := pointFor(c)
	low, high, step := c.Float64(flagLow), c.Float64(flagHigh), c.Float64(flagStep)

	var sol kinematics.Solution
	if c.Bool(flagFirstFit) {
		sol, err = model.SearchRange(point, low, high, step)
	} else {
		sol, err = model.SearchRangeFromPreference(point, c.Float64(flagPreferred), low, high, step)
	}
	if err != nil && !errors.Is(err, kinematics.ErrNotFound) {
		return err
	}
	renderSearch(c.App.Writer, point, sol, err == nil)
	return nil
}

func surveyAction(c *cli.Context) error {
	model, err := modelFor(c)
	if err != nil {
		return err
	}
	req := kinematics.SurveyRequest{
		Z:           c.Float64(flagZ),
		XMin:        c.Float64(flagXMin),
		XMax:        c.Float64(flagXMax),
		XStep:       c.Float64(flagXStep),
		YMin:        c.Float64(flagYMin),
		YMax:        c.Float64(flagYMax),
		YStep:       c.Float64(flagYStep),
		PitchLow:    c.Float64(flagLow),
		PitchHigh:   c.Float64(flagHigh),
		PitchStep:   c.Float64(flagStep),
		Concurrency: c.Int(flagConcurrency),
	}
	res, err := kinematics.Survey(c.Context, req, model.LinkLengths())
	if err != nil {
		return err
	}
	renderSurvey(c.App.Writer, req, res)
	return nil
}

func demoAction(c *cli.Context) error {
	model, err := modelFor(c)
	if err != nil {
		return err
	}
	links := model.LinkLengths()
	targets := []kinematics.TargetPose{
		{Point: r3.Vector{Z: links.TotalLength()}, Pitch: 90},
		{Point: r3.Vector{X: 0, Y: 33.775, Z: 33.2}, Pitch: 30},
		{Point: r3.Vector{X: 29.25, Y: 16.8875, Z: 33.2}, Pitch: 30},
	}
	for _, target := range targets {
		angles, err := model.Solve(target)
		renderSolve(c.App.Writer, links, target, angles, err)
	}
	return nil
}
