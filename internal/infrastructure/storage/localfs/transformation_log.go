package localfs

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/optimization"
	"github.com/turtacn/ReactEA/pkg/errors"
)

var transformationLogHeader = []string{"time", "run_id", "compound_id", "generation", "smiles", "rule_id"}

// TransformationLog appends every accepted mutation to a TSV file in the run
// folder. Write failures are logged and do not stop the run.
type TransformationLog struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	logger logging.Logger
	now    func() time.Time
}

func OpenTransformationLog(dir string, logger logging.Logger) (*TransformationLog, error) {
	path := filepath.Join(dir, TransformationLogFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIOFailure, "open transformation log")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	l := &TransformationLog{file: f, w: bufio.NewWriter(f), logger: logger.Named("transformation_log"), now: time.Now}
	l.writeLine(transformationLogHeader)
	return l, nil
}

func (l *TransformationLog) LogTransformation(settings optimization.RunInfo, s *optimization.Solution, smiles, ruleID string) {
	l.writeLine([]string{
		l.now().UTC().Format(time.RFC3339Nano),
		settings.RunID,
		s.Compound.ID,
		strconv.Itoa(s.Compound.Generation()),
		smiles,
		ruleID,
	})
}

func (l *TransformationLog) writeLine(fields []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}
	if _, err := l.w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
		l.logger.Warn("failed to append transformation", logging.Err(err))
	}
}

// Close flushes buffered rows and closes the file.
func (l *TransformationLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	l.w = nil
	if flushErr != nil {
		return errors.Wrap(flushErr, errors.CodeIOFailure, "flush transformation log")
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, errors.CodeIOFailure, "close transformation log")
	}
	return nil
}

var _ optimization.TransformationLogger = (*TransformationLog)(nil)
