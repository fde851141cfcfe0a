package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ikarm"
	"ikarm/kinematics"
)

func runApp(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(append([]string{"ik"}, args...)))
	return out.String()
}

func TestSolveCommand(t *testing.T) {
	out := runApp(t, "solve", "--x", "0", "--y", "33.775", "--z", "33.2", "--pitch", "30")
	assert.Contains(t, out, "90.0000")
	assert.Contains(t, out, "30.0000")

	out = runApp(t, "solve", "--x", "0", "--y", "0", "--z", "52.9", "--pitch", "90")
	assert.Contains(t, out, "out_of_reach")
}

func TestSearchCommand(t *testing.T) {
	out := runApp(t, "search", "--x", "0", "--y", "33.775", "--z", "33.2",
		"--preferred", "20", "--low", "60", "--high", "1")
	assert.Contains(t, out, "30.0000")

	out = runApp(t, "search", "--x", "0", "--y", "33.775", "--z", "33.2", "--first-fit", "--low", "20", "--high", "1")
	assert.Contains(t, out, "no feasible pitch")
}

func TestSurveyCommand(t *testing.T) {
	out := runApp(t, "survey", "--z", "5", "--x-min", "0", "--x-max", "40", "--x-step", "10",
		"--y-min", "0", "--y-max", "10", "--y-step", "10", "--step", "5")
	assert.Contains(t, out, "8/10")
}

func TestLinksFileFlag(t *testing.T) {
	linksFile := filepath.Join(t.TempDir(), "links.json")
	require.NoError(t, ikarm.SaveLinkLengthsToFile(linksFile, kinematics.LinkLengths{L1: 13.7, L2: 20, L3: 20, L4: 10}))

	// Out of reach for the default arm, reachable with the longer links.
	out := runApp(t, "--links-file", linksFile, "solve", "--x", "0", "--y", "40", "--z", "13.7", "--pitch", "0")
	assert.NotContains(t, out, "unreachable")
	assert.Contains(t, out, "90.0000")

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"ik", "--links-file", filepath.Join(t.TempDir(), "missing.json"), "demo"})
	assert.ErrorContains(t, err, "failed to read links file")
}

func TestDemoCommand(t *testing.T) {
	out := runApp(t, "demo")
	assert.Contains(t, out, "Z:52.7")
	assert.Contains(t, out, "29.25")
}
