// Package plugin implements the sidecar subprocess protocol that stands
// in for the engine's "prepare" and "beforeCommit" hook points.
//
// Each plugin is an external executable speaking a single JSON request
// per line on stdin and a single JSON response per line on stdout. This
// keeps the plugin boundary a stable, language-agnostic ABI rather than
// an in-process dynamic-loading mechanism.
package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Hook names recognized by the engine. Any other exported name in a
// plugin's manifest is rejected at construction.
const (
	HookPrepare      = "prepare"
	HookBeforeCommit = "beforeCommit"
)

var recognizedHooks = map[string]bool{
	HookPrepare:      true,
	HookBeforeCommit: true,
}

// Context is the payload passed to every hook invocation. GetTargetHash
// is resolved before marshaling, since the wire protocol cannot carry a
// callback.
type Context struct {
	Source         string            `json:"source"`
	Target         string            `json:"target"`
	Options        map[string]any    `json:"options"`
	TargetHash     string            `json:"targetHash,omitempty"`
	SourcePathspec string            `json:"sourcePathspec,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

type request struct {
	Hook    string  `json:"hook"`
	Context Context `json:"context"`
}

type response struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Context Context `json:"context,omitempty"`
}

// Plugin is a handle to a running sidecar process.
type Plugin struct {
	path string
	cmd  *exec.Cmd

	stdin  *bufio.Writer
	stdout *bufio.Scanner

	hooks map[string]bool
}

// Manifest describes the hooks a plugin declares it implements. Load
// queries the sidecar for this manifest immediately after starting it.
type Manifest struct {
	Hooks []string `json:"hooks"`
}

// Load starts the plugin executable at path and validates its declared
// hook manifest. It returns an error naming the offending hook if the
// plugin exports anything outside [HookPrepare]/[HookBeforeCommit].
func Load(ctx context.Context, path string) (*Plugin, error) {
	cmd := exec.CommandContext(ctx, path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open plugin stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open plugin stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start plugin %q: %w", path, err)
	}

	p := &Plugin{
		path:   path,
		cmd:    cmd,
		stdin:  bufio.NewWriter(stdin),
		stdout: bufio.NewScanner(stdout),
		hooks:  make(map[string]bool),
	}

	manifest, err := p.readManifest()
	if err != nil {
		return nil, err
	}
	for _, name := range manifest.Hooks {
		if !recognizedHooks[name] {
			return nil, fmt.Errorf(
				"Unsupported method %q in plugin %q, please remove it from export",
				name, path,
			)
		}
		p.hooks[name] = true
	}

	return p, nil
}

func (p *Plugin) readManifest() (Manifest, error) {
	if !p.stdout.Scan() {
		return Manifest{}, fmt.Errorf("plugin %q closed before sending its manifest", p.path)
	}

	var m Manifest
	if err := json.Unmarshal(p.stdout.Bytes(), &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest from plugin %q: %w", p.path, err)
	}
	return m, nil
}

// Has reports whether the plugin declared the given hook.
func (p *Plugin) Has(hook string) bool {
	return p.hooks[hook]
}

// Run invokes hook with ctxVal and returns the (possibly mutated)
// context the plugin sent back. It is a no-op returning ctxVal unchanged
// if the plugin does not declare hook.
func (p *Plugin) Run(hook string, ctxVal Context) (Context, error) {
	if !p.Has(hook) {
		return ctxVal, nil
	}

	req := request{Hook: hook, Context: ctxVal}
	data, err := json.Marshal(req)
	if err != nil {
		return ctxVal, fmt.Errorf("marshal request: %w", err)
	}

	if _, err := p.stdin.Write(data); err != nil {
		return ctxVal, fmt.Errorf("write to plugin %q: %w", p.path, err)
	}
	if err := p.stdin.WriteByte('\n'); err != nil {
		return ctxVal, fmt.Errorf("write to plugin %q: %w", p.path, err)
	}
	if err := p.stdin.Flush(); err != nil {
		return ctxVal, fmt.Errorf("flush plugin %q: %w", p.path, err)
	}

	if !p.stdout.Scan() {
		return ctxVal, fmt.Errorf("plugin %q closed during hook %q", p.path, hook)
	}

	var resp response
	if err := json.Unmarshal(p.stdout.Bytes(), &resp); err != nil {
		return ctxVal, fmt.Errorf("parse response from plugin %q: %w", p.path, err)
	}
	if !resp.OK {
		return ctxVal, fmt.Errorf("plugin %q hook %q: %s", p.path, hook, resp.Error)
	}

	return resp.Context, nil
}

// Close terminates the plugin process.
func (p *Plugin) Close() error {
	_ = p.cmd.Process.Kill()
	if err := p.cmd.Wait(); err != nil {
		if !strings.Contains(err.Error(), "signal: killed") {
			return fmt.Errorf("plugin %q: %w", p.path, err)
		}
	}
	return nil
}

// Chain runs a named hook across every plugin in order, each seeing the
// context produced by the previous one. One plugin must finish the hook
// before the next begins — this mirrors the single-threaded invocation
// order the engine itself follows.
func Chain(plugins []*Plugin, hook string, ctxVal Context) (Context, error) {
	for _, p := range plugins {
		var err error
		ctxVal, err = p.Run(hook, ctxVal)
		if err != nil {
			return ctxVal, err
		}
	}
	return ctxVal, nil
}
