// Package export ships processed frames to the HDFS warehouse. The warehouse
// is reached through a docker container running the HDFS client: the frame is
// serialized to CSV, piped into a staging file inside the container, then
// moved into HDFS with hdfs dfs commands. Staging files get uuid names so
// concurrent exports never collide, and are removed best-effort afterwards.
package export

import (
	"bytes"
	"fmt"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/nexabank/bankfeed/frame"
	"github.com/nexabank/bankfeed/logger"
)

// runner abstracts command execution so tests can stub out docker.
type runner interface {
	run(stdin []byte, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) run(stdin []byte, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %s", err, msg)
		}
		return err
	}
	return nil
}

// Exporter loads frames into HDFS through a docker-exec shim.
type Exporter struct {
	container string
	hdfsPath  string
	tempDir   string
	run       runner
}

// New creates an exporter targeting the given container and warehouse path.
func New(container, hdfsPath, tempDir string) *Exporter {
	return &Exporter{
		container: container,
		hdfsPath:  strings.TrimRight(hdfsPath, "/"),
		tempDir:   strings.TrimRight(tempDir, "/"),
		run:       execRunner{},
	}
}

// Verify checks that docker is running, the container is reachable and the
// staging directory exists. Call once at startup.
func (e *Exporter) Verify() error {
	if err := e.run.run(nil, "docker", "ps"); err != nil {
		return fmt.Errorf("docker is not available: %w", err)
	}
	if err := e.run.run(nil, "docker", "inspect", e.container); err != nil {
		return fmt.Errorf("container %q not found: %w", e.container, err)
	}
	if err := e.run.run(nil, "docker", "exec", e.container, "mkdir", "-p", e.tempDir); err != nil {
		return fmt.Errorf("cannot create staging dir %q: %w", e.tempDir, err)
	}
	return nil
}

// Export serializes the frame to CSV and places it in HDFS under the
// warehouse root at name (extension replaced by .csv). Returns ok=false with
// a message for every failure; the exported flag in the status store must
// only flip on ok=true.
func (e *Exporter) Export(fr *frame.Frame, name string) (bool, string) {
	if fr == nil || fr.Len() == 0 {
		return false, "No data to export"
	}

	data, err := MarshalCSV(fr)
	if err != nil {
		return false, fmt.Sprintf("cannot serialize frame: %v", err)
	}

	rel := strings.TrimSuffix(name, path.Ext(name)) + ".csv"
	hdfsFile := e.hdfsPath + "/" + filepath.ToSlash(rel)
	staging := fmt.Sprintf("%s/%s.csv", e.tempDir, uuid.NewString())

	if err := e.stage(data, staging); err != nil {
		return false, fmt.Sprintf("staging transfer failed: %v", err)
	}
	defer e.cleanup(staging)

	if err := e.load(staging, hdfsFile); err != nil {
		return false, fmt.Sprintf("hdfs load failed: %v", err)
	}

	return true, fmt.Sprintf("Successfully exported %d rows to %s", fr.Len(), hdfsFile)
}

// stage pipes the CSV bytes into a file inside the container.
func (e *Exporter) stage(data []byte, staging string) error {
	script := "cat > " + shellquote.Join(staging)
	return e.run.run(data, "docker", "exec", "-i", e.container, "sh", "-c", script)
}

// load moves the staged file into HDFS.
func (e *Exporter) load(staging, hdfsFile string) error {
	commands := []string{
		shellquote.Join("hdfs", "dfs", "-mkdir", "-p", path.Dir(hdfsFile)),
		shellquote.Join("hdfs", "dfs", "-put", "-f", staging, hdfsFile),
	}
	for _, command := range commands {
		if err := e.run.run(nil, "docker", "exec", e.container, "sh", "-c", command); err != nil {
			return fmt.Errorf("%s: %w", command, err)
		}
	}
	return nil
}

// cleanup removes the staging file. Failure only clutters the container, so
// it is logged and ignored.
func (e *Exporter) cleanup(staging string) {
	if err := e.run.run(nil, "docker", "exec", e.container, "rm", "-f", staging); err != nil {
		logger.Debugw("Staging cleanup failed", "path", staging, "error", err)
	}
}
