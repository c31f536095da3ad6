package datarecording

import (
	"os"
	"strings"
	"time"
)

// RunInfoTable holds the properties of a recorded run.
const RunInfoTable = "run_info"

// RunProperty is one row of the run_info table.
type RunProperty struct {
	Property string
	Value    string
}

// RunRecorder records how a simulation run was started and when it ended.
type RunRecorder struct {
	recorder DataRecorder
	entries  []RunProperty
}

// NewRunRecorder creates the run_info table in the recorder.
func NewRunRecorder(recorder DataRecorder) *RunRecorder {
	recorder.CreateTable(RunInfoTable, RunProperty{})

	return &RunRecorder{recorder: recorder}
}

// Start records the start time and the command line.
func (r *RunRecorder) Start() {
	r.Set("Start Time", time.Now().Format(time.RFC3339Nano))
	r.Set("Command", strings.Join(os.Args, " "))

	if wd, err := os.Getwd(); err == nil {
		r.Set("Working Directory", wd)
	}
}

// Set records a property of the run, such as a configuration value.
func (r *RunRecorder) Set(property, value string) {
	r.entries = append(r.entries, RunProperty{property, value})
}

// End writes all properties together with the end time.
func (r *RunRecorder) End() {
	r.Set("End Time", time.Now().Format(time.RFC3339Nano))

	for _, e := range r.entries {
		r.recorder.InsertData(RunInfoTable, e)
	}

	r.entries = nil

	r.recorder.Flush()
}
