package optimization

// RunInfo identifies the run a transformation belongs to. It is handed to
// every TransformationLogger call.
type RunInfo struct {
	RunID      string
	Experiment string
	OutputDir  string
}

// TransformationLogger receives every accepted mutation. Implementations
// must not fail the caller; they handle and log their own errors and must be
// safe for concurrent use.
type TransformationLogger interface {
	LogTransformation(settings RunInfo, solution *Solution, smiles, ruleID string)
}

// TransformationLoggerFunc adapts a function to TransformationLogger.
type TransformationLoggerFunc func(settings RunInfo, solution *Solution, smiles, ruleID string)

func (f TransformationLoggerFunc) LogTransformation(settings RunInfo, solution *Solution, smiles, ruleID string) {
	f(settings, solution, smiles, ruleID)
}

// TransformationLoggers fans a transformation out to several sinks.
type TransformationLoggers []TransformationLogger

func (ls TransformationLoggers) LogTransformation(settings RunInfo, solution *Solution, smiles, ruleID string) {
	for _, l := range ls {
		if l != nil {
			l.LogTransformation(settings, solution, smiles, ruleID)
		}
	}
}
