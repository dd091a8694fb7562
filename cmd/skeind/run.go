// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teradata-labs/skein/pkg/agentrun"
	"github.com/teradata-labs/skein/pkg/compaction"
	skeincontext "github.com/teradata-labs/skein/pkg/context"
	"github.com/teradata-labs/skein/pkg/events"
	"github.com/teradata-labs/skein/pkg/turn"
)

var runWorkspacePath string

// runCmd drives a single prompt through one session's turn loop and
// prints the assistant's final reply, without keeping a server process
// alive: a direct, one-shot agent run rather than a persistent thread.
var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run a single prompt through a new session and print the reply",
	Long: heredoc.Doc(`
		run creates a fresh workspace and session, sends the given prompt
		through the turn loop exactly as the daemon would for an incoming
		message, and prints the assistant's final text.
	`),
	Args: cobra.ExactArgs(1),
	RunE: runOneShot,
}

func init() {
	runCmd.Flags().StringVar(&runWorkspacePath, "workspace", ".", "workspace directory for the session")
	rootCmd.AddCommand(runCmd)
}

func runOneShot(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("skeind: invalid configuration: %w", err)
	}

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("skeind: build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx := context.Background()

	workspace, err := rt.store.CreateWorkspace(ctx, runWorkspacePath, filepath.Base(runWorkspacePath))
	if err != nil {
		return fmt.Errorf("skeind: create workspace: %w", err)
	}

	session, err := rt.store.CreateSession(ctx, workspace.ID, events.SessionStartPayload{
		WorkingDir: runWorkspacePath,
		Model:      rt.provider.Model(),
	})
	if err != nil {
		return fmt.Errorf("skeind: create session: %w", err)
	}

	manager := skeincontext.NewManager(session.ID)
	manager.SetBlock("core", "You are Skein, an autonomous coding agent.", skeincontext.StabilityStable)
	manager.SetBlock("workingDirectory", runWorkspacePath, skeincontext.StabilityStable)

	turnRunner := turn.NewRunner(
		rt.store, manager, session.ID, "main", runWorkspacePath,
		rt.provider, rt.tools, rt.guardrails, hookEngineFor(rt, session.ID), rt.executor,
		turn.WithRetryConfig(cfg.Retry.TurnRetryConfig()),
		turn.WithLogger(logger),
	)

	compactionEngine := compaction.NewEngine(
		rt.store, manager, session.ID,
		compaction.NewChildAgentSummarizer(rt.provider),
	)

	runner := agentrun.NewRunner(
		rt.store, manager, session.ID, turnRunner, hookEngineFor(rt, session.ID), compactionEngine,
		cfg.Tokens.ModelContextLimit,
		agentrun.WithThresholds(cfg.Tokens.Thresholds()),
		agentrun.WithLogger(logger),
	)

	outcome, err := runner.Run(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("skeind: run: %w", err)
	}

	if isInteractiveStdout() {
		fmt.Printf("session %s (stop reason: %s, %d turn(s))\n\n", session.ID, outcome.StopReason, outcome.Turns)
	}

	text, err := lastAssistantText(ctx, rt, session.ID)
	if err != nil {
		return fmt.Errorf("skeind: read assistant reply: %w", err)
	}
	fmt.Println(text)
	return nil
}

// lastAssistantText fetches the most recent message.assistant event for
// sessionID and concatenates its text content blocks.
func lastAssistantText(ctx context.Context, rt *runtime, sessionID string) (string, error) {
	evs, err := rt.store.GetEventsByType(ctx, sessionID, []events.EventType{events.EventMessageAssistant}, 0)
	if err != nil {
		return "", err
	}
	if len(evs) == 0 {
		return "", fmt.Errorf("no assistant reply recorded")
	}
	last := evs[len(evs)-1]
	raw, err := events.TypedPayload(events.EventMessageAssistant, last.Payload)
	if err != nil {
		return "", err
	}
	payload, ok := raw.(*events.MessageAssistantPayload)
	if !ok {
		return "", fmt.Errorf("unexpected payload type for message.assistant event")
	}
	var sb strings.Builder
	for _, block := range payload.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func isInteractiveStdout() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
