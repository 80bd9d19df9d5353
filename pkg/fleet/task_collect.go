package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/netfleet-ops/netfleet/pkg/device"
	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

// Artifact is a file written for one host.
type Artifact struct {
	Path  string
	Bytes int
}

// writeArtifact writes data to <OutputDir>/<host><ext>. The file is
// renamed into place so a failed write never leaves a partial artifact.
func writeArtifact(env *Env, host, ext string, data []byte) (Artifact, error) {
	dir := env.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Artifact{}, fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, host+ext)
	tmp, err := os.CreateTemp(dir, "."+host+"-*")
	if err != nil {
		return Artifact{}, err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, err
	}
	return Artifact{Path: path, Bytes: len(data)}, nil
}

func writeJSONArtifact(env *Env, host string, v any) (Artifact, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Artifact{}, err
	}
	return writeArtifact(env, host, ".json", append(data, '\n'))
}

// CollectLogs saves the device log for a time window to <host>.log.
type CollectLogs struct {
	Window util.Window
}

func (t *CollectLogs) Kind() Kind { return KindCollectLogs }

func (t *CollectLogs) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) (Artifact, error) {
	// Busy devices can take minutes to render a large log.
	ctx, cancel := context.WithTimeout(ctx, env.logTimeout())
	defer cancel()

	out, err := device.RunOne(ctx, conn, device.EncodingText, "show logging last "+t.Window.String())
	if err != nil {
		return Artifact{}, err
	}
	return writeArtifact(env, host.Name, ".log", []byte(out.Text))
}

// CollectConfig saves the running configuration to <host>.cfg.
type CollectConfig struct{}

func (t *CollectConfig) Kind() Kind { return KindCollectConfig }

func (t *CollectConfig) Execute(ctx context.Context, env *Env, host *inventory.Host, conn device.Conn) (Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, env.commandTimeout())
	defer cancel()

	out, err := device.RunOne(ctx, conn, device.EncodingText, "show running-config")
	if err != nil {
		return Artifact{}, err
	}
	return writeArtifact(env, host.Name, ".cfg", []byte(out.Text))
}
