package recorder

import (
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/logging"
)

// Observer turns run notifications into trace events.
type Observer struct {
	rec    Recorder
	logger logging.Logger
	nextID int64
	runID  string
	name   string
}

// NewObserver returns an observer that records into rec.
func NewObserver(rec Recorder) *Observer {
	return &Observer{rec: rec, logger: logging.Nop}
}

// WithLogger sets the logger recording failures are reported to.
func (o *Observer) WithLogger(l logging.Logger) *Observer {
	o.logger = logging.OrNop(l)
	return o
}

func (o *Observer) record(e Event) {
	o.nextID++
	e.ID = o.nextID
	e.Timestamp = CurrentTime()
	e.RunID = o.runID
	e.Variant = o.name
	if err := o.rec.RecordEvent(e); err != nil {
		o.logger.Warn("dropping trace event",
			zap.Stringer("type", e.Type),
			zap.String("checkpoint", e.Checkpoint),
			zap.Error(err))
	}
}

func (o *Observer) RunStarted(info checkpoint.RunInfo) {
	o.runID, o.name = info.ID, info.Variant
	o.record(Event{
		Type: RunStarted,
		Tag:  string(info.Tag),
		Args: info.Args,
	})
}

func (o *Observer) CheckpointReached(snap *checkpoint.Snapshot) {
	cp := snap.Checkpoint
	o.record(Event{
		Type:       CheckpointReached,
		Tag:        string(cp.Tag),
		Checkpoint: cp.Name,
		Ordinal:    cp.Ordinal,
		File:       cp.File,
		Line:       cp.Line,
		Vars:       CaptureSnapshot(snap),
	})
}

// Emit records a line produced while inspecting a checkpoint.
func (o *Observer) Emit(cp checkpoint.Checkpoint, line string) {
	o.record(Event{
		Type:       ValueEmitted,
		Checkpoint: cp.Name,
		Ordinal:    cp.Ordinal,
		File:       cp.File,
		Line:       cp.Line,
		Details:    line,
	})
}

func (o *Observer) RunFinished(info checkpoint.RunInfo) {
	o.record(Event{
		Type:        RunFinished,
		Tag:         string(info.Tag),
		Details:     info.AbortReason,
		Outcome:     info.Outcome.String(),
		Leaked:      info.Leaked,
		DoubleFrees: info.DoubleFrees,
	})
}
