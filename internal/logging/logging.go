package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the timestamped log file path for one daemon run.
func LogFilePath(logsDir, name string, startTime time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, startTime.Format("20060102_150405")),
	)
}
