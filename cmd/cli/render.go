package main

import (
	"fmt"
	"io"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"ikarm/kinematics"
)

func formatPoint(p r3.Vector) string {
	return fmt.Sprintf("X:%.4g, Y:%.4g, Z:%.4g", p.X, p.Y, p.Z)
}

func anglesRow(angles kinematics.JointAngles) table.Row {
	return table.Row{
		fmt.Sprintf("%.4f", angles.Theta1),
		fmt.Sprintf("%.4f", angles.Theta2),
		fmt.Sprintf("%.4f", angles.Theta3),
		fmt.Sprintf("%.4f", angles.Theta4),
	}
}

func renderSolve(w io.Writer, links kinematics.LinkLengths, target kinematics.TargetPose, angles kinematics.JointAngles, solveErr error) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s  pitch %g  (%v)", formatPoint(target.Point), target.Pitch, links)
	if reason, ok := kinematics.ReasonOf(solveErr); ok {
		t.AppendHeader(table.Row{"Result", "Reason"})
		t.AppendRow(table.Row{"unreachable", reason.String()})
		t.Render()
		return
	}
	t.AppendHeader(table.Row{"Theta1", "Theta2", "Theta3", "Theta4"})
	t.AppendRow(anglesRow(angles))
	t.Render()
}

func renderSearch(w io.Writer, point r3.Vector, sol kinematics.Solution, found bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s", formatPoint(point))
	if !found {
		t.AppendHeader(table.Row{"Result"})
		t.AppendRow(table.Row{"no feasible pitch"})
		t.Render()
		return
	}
	t.AppendHeader(table.Row{"Pitch", "Theta1", "Theta2", "Theta3", "Theta4"})
	t.AppendRow(append(table.Row{fmt.Sprintf("%g", sol.Pitch)}, anglesRow(sol.Angles)...))
	t.Render()
}

func renderSurvey(w io.Writer, req kinematics.SurveyRequest, res kinematics.SurveyResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("z=%g  pitch %g..%g step %g", req.Z, req.PitchLow, req.PitchHigh, req.PitchStep)
	t.AppendHeader(table.Row{"#", "X", "Y", "Pitch"})
	t.AppendRows(lo.Map(res.Reachable, func(p kinematics.SurveyPoint, i int) table.Row {
		return table.Row{i + 1, p.Point.X, p.Point.Y, p.Solution.Pitch}
	}))
	t.AppendFooter(table.Row{"", "", "reachable", fmt.Sprintf("%d/%d", len(res.Reachable), res.Checked)})
	t.Render()
}
