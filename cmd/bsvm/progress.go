package main

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

const rowsTemplate pb.ProgressBarTemplate = `{{string . "prefix"}}{{counters . }} rows {{speed . "%s rows/s" }} {{etime . }}`

// rowBar counts loaded rows. The total is unknown while streaming.
type rowBar struct {
	bar *pb.ProgressBar
}

func newRowBar(w io.Writer, prefix string, quiet bool) *rowBar {
	if quiet {
		return &rowBar{}
	}
	bar := rowsTemplate.New(0)
	bar.SetWriter(w)
	bar.Set("prefix", prefix+" ")
	bar.Start()
	return &rowBar{bar: bar}
}

func (r *rowBar) add(n int) {
	if r.bar != nil {
		r.bar.Add(n)
	}
}

func (r *rowBar) finish() {
	if r.bar != nil {
		r.bar.Finish()
	}
}
