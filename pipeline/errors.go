package pipeline

import "errors"

// ErrFatal marks a task failure that no downstream stage can recover:
// the model stayed rate limited through the whole retry budget, or a
// stage failed in a way that leaves nothing to synthesize an answer from.
var ErrFatal = errors.New("pipeline: fatal task failure")
