// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/semdex-dev/semdex/internal/config"
	"github.com/semdex-dev/semdex/internal/embed"
	googleemb "github.com/semdex-dev/semdex/internal/embed/google"
	openaiemb "github.com/semdex-dev/semdex/internal/embed/openai"
	"github.com/semdex-dev/semdex/internal/secrets"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/spf13/cobra"
)

// keyCheckClient performs the live API key probe during setup.
// A variable so tests can swap in a stub transport.
var keyCheckClient = &http.Client{Timeout: 10 * time.Second}

// ProviderType aliases embed.ProviderName for use in the setup wizard.
type ProviderType = embed.ProviderName

const (
	ProviderLocal  = embed.ProviderLocal
	ProviderOpenAI = embed.ProviderOpenAI
	ProviderGoogle = embed.ProviderGoogle
)

// wizardPhase tracks where the setup wizard currently is.
type wizardPhase int

const (
	phaseProvider wizardPhase = iota // pick embedding provider
	phaseKey                         // enter API key
	phaseKeyCheck                    // live key probe (spinner)
	phaseCorpus                      // enter corpus root directory
	phaseDone                        // finished
	phaseFailed                      // terminal error
)

// setupResult is everything the wizard collects.
type setupResult struct {
	Provider   ProviderType
	APIKey     string
	CorpusRoot string
}

// Messages delivered back into the wizard by async tea.Cmds.
type (
	keyAcceptedMsg  struct{}
	keyRejectedMsg  struct{ err error }
	setupWrittenMsg struct{ path string }
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	chosenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// providerChoices lists the wizard options. The local embedder comes first:
// it needs no credentials, so accepting every default yields a working setup.
var providerChoices = []ProviderType{
	ProviderLocal,
	ProviderOpenAI,
	ProviderGoogle,
}

// wizard is the bubbletea model backing `semdex init`.
type wizard struct {
	phase       wizardPhase
	providerIdx int
	keyInput    textinput.Model
	corpusInput textinput.Model
	spinner     spinner.Model
	result      setupResult
	inputErr    string
	writtenPath string
	secretStore secrets.Store
	fatalErr    error
	overwrite   bool
}

func newWizard(store secrets.Store) wizard {
	key := textinput.New()
	key.Placeholder = "API key (input hidden)"
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'

	corpus := textinput.New()
	corpus.Placeholder = "."

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return wizard{
		phase:       phaseProvider,
		keyInput:    key,
		corpusInput: corpus,
		spinner:     sp,
		secretStore: store,
	}
}

func (w wizard) Init() tea.Cmd {
	return nil
}

func (w wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch w.phase {
		case phaseProvider:
			return w.pickProvider(msg)
		case phaseKey:
			return w.enterKey(msg)
		case phaseCorpus:
			return w.enterCorpusRoot(msg)
		}
		return w, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd

	case keyAcceptedMsg:
		w.phase = phaseCorpus
		w.corpusInput.SetValue("")
		w.corpusInput.Focus()
		return w, textinput.Blink

	case keyRejectedMsg:
		w.inputErr = msg.err.Error()
		w.phase = phaseKey
		w.keyInput.Focus()
		return w, nil

	case setupWrittenMsg:
		w.phase = phaseDone
		w.writtenPath = msg.path
		return w, tea.Quit

	case error:
		w.phase = phaseFailed
		w.fatalErr = msg
		return w, tea.Quit
	}

	return w.passToInput(msg)
}

func (w wizard) pickProvider(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if w.providerIdx > 0 {
			w.providerIdx--
		}
	case "down", "j":
		if w.providerIdx < len(providerChoices)-1 {
			w.providerIdx++
		}
	case "enter":
		w.result.Provider = providerChoices[w.providerIdx]
		w.inputErr = ""
		// The local embedder needs no credentials; skip the key phases.
		if w.result.Provider == ProviderLocal {
			w.phase = phaseCorpus
			w.corpusInput.SetValue("")
			w.corpusInput.Focus()
			return w, textinput.Blink
		}
		w.phase = phaseKey
		w.keyInput.SetValue("")
		w.keyInput.Focus()
		return w, textinput.Blink
	case "q", "ctrl+c":
		return w, tea.Quit
	}
	return w, nil
}

func (w wizard) enterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(w.keyInput.Value())
		if key == "" {
			w.inputErr = "enter a key, or pick the local provider instead"
			return w, nil
		}
		w.result.APIKey = key
		w.inputErr = ""
		w.phase = phaseKeyCheck
		return w, tea.Batch(w.spinner.Tick, checkKeyCmd(w.result.Provider, key))
	case "ctrl+c":
		return w, tea.Quit
	}
	var cmd tea.Cmd
	w.keyInput, cmd = w.keyInput.Update(msg)
	return w, cmd
}

func (w wizard) enterCorpusRoot(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		root := strings.TrimSpace(w.corpusInput.Value())
		if root == "" {
			root = "."
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			w.inputErr = fmt.Sprintf("%s is not a directory", root)
			return w, nil
		}
		w.result.CorpusRoot = root
		w.inputErr = ""
		return w, finishCmd(w.result, w.secretStore, w.overwrite)
	case "ctrl+c":
		return w, tea.Quit
	}
	var cmd tea.Cmd
	w.corpusInput, cmd = w.corpusInput.Update(msg)
	return w, cmd
}

// passToInput forwards non-key messages (paste, blink) to the focused input.
func (w wizard) passToInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch w.phase {
	case phaseKey:
		w.keyInput, cmd = w.keyInput.Update(msg)
	case phaseCorpus:
		w.corpusInput, cmd = w.corpusInput.Update(msg)
	}
	return w, cmd
}

func (w wizard) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" semdex setup ") + "\n\n")

	switch w.phase {
	case phaseProvider:
		b.WriteString(stepStyle.Render("Step 1 of 2: pick an embedding provider") + "\n\n")
		for i, p := range providerChoices {
			line := "    " + string(p)
			if i == w.providerIdx {
				line = chosenStyle.Render("  > " + string(p))
			} else {
				line = faintStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + faintStyle.Render("↑/↓ move · enter choose · q quit"))

	case phaseKey:
		b.WriteString(stepStyle.Render("Step 1 of 2: "+string(w.result.Provider)+" API key") + "\n\n")
		b.WriteString(w.keyInput.View() + "\n")
		if w.inputErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+w.inputErr) + "\n")
		}
		b.WriteString("\n" + faintStyle.Render("enter to validate · ctrl+c to abort"))

	case phaseKeyCheck:
		b.WriteString(w.spinner.View() + " Checking " + string(w.result.Provider) + " credentials...\n")

	case phaseCorpus:
		b.WriteString(stepStyle.Render("Step 2 of 2: corpus root directory") + "\n\n")
		b.WriteString(w.corpusInput.View() + "\n")
		if w.inputErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+w.inputErr) + "\n")
		}
		b.WriteString("\n" + faintStyle.Render("enter to accept · blank uses the current directory"))

	case phaseDone:
		b.WriteString(okStyle.Render(" Setup complete ") + "\n\n")
		if w.writtenPath != "" {
			b.WriteString(faintStyle.Render("Wrote "+w.writtenPath) + "\n\n")
		}
		b.WriteString("Next steps:\n")
		b.WriteString("  " + stepStyle.Render("semdex index") + "   embed and index your corpus\n")
		b.WriteString("  " + stepStyle.Render("semdex search") + "  run your first query\n")
		b.WriteString("  " + stepStyle.Render("semdex doctor") + "  check the setup end to end\n")

	case phaseFailed:
		b.WriteString(errorStyle.Render("Init failed: "+w.fatalErr.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

// checkKeyCmd probes the provider with the entered key off the UI goroutine.
func checkKeyCmd(p ProviderType, key string) tea.Cmd {
	return func() tea.Msg {
		if err := embed.ValidateKey(context.Background(), keyCheckClient, p, key); err != nil {
			return keyRejectedMsg{err: err}
		}
		return keyAcceptedMsg{}
	}
}

// finishCmd persists the wizard result: key into the keyring, YAML to disk.
func finishCmd(result setupResult, store secrets.Store, overwrite bool) tea.Cmd {
	return func() tea.Msg {
		path, err := finalizeSetup(result, store, overwrite)
		if err != nil {
			return err
		}
		return setupWrittenMsg{path: path}
	}
}

// renderSetupYAML produces the semdex.yaml content for a wizard result. Keys
// never appear inline; remote providers get a keyring:// reference instead.
func renderSetupYAML(result setupResult) string {
	var sb strings.Builder
	sb.WriteString("# Generated by semdex init. Edit freely; missing fields fall back to defaults.\n\n")

	sb.WriteString("embedding:\n")
	sb.WriteString(fmt.Sprintf("  provider: %q\n", result.Provider))
	if model := defaultModelFor(result.Provider); model != "" {
		sb.WriteString(fmt.Sprintf("  model: %q\n", model))
	}
	sb.WriteString(fmt.Sprintf("  dimensions: %d\n", defaultDimensionsFor(result.Provider)))
	if result.Provider != ProviderLocal {
		sb.WriteString(fmt.Sprintf("  api_key: \"keyring://%s/%s-api-key\"\n", serviceName, result.Provider))
	}
	sb.WriteString("\n")

	sb.WriteString("index:\n")
	sb.WriteString("  backend: memory\n\n")

	sb.WriteString("cache:\n")
	sb.WriteString("  capacity: 512\n")
	sb.WriteString("  ttl: 300s\n\n")

	sb.WriteString("search:\n")
	sb.WriteString("  threshold: 0.7\n")
	sb.WriteString("  max_results: 10\n")
	sb.WriteString("  min_group_size: 2\n")
	sb.WriteString("  max_file_bytes: 1000000\n\n")

	sb.WriteString("batch:\n")
	sb.WriteString("  chunk_size: 8\n")
	sb.WriteString("  chunk_timeout: 30s\n")
	sb.WriteString("  pause: 100ms\n\n")

	sb.WriteString("corpus:\n")
	sb.WriteString(fmt.Sprintf("  root: %q\n", result.CorpusRoot))
	sb.WriteString("  watch:\n")
	sb.WriteString("    debounce: 500ms\n")

	return sb.String()
}

// defaultModelFor names each provider's default embedding model; the local
// embedder has none.
func defaultModelFor(p ProviderType) string {
	switch p {
	case ProviderOpenAI:
		return openaiemb.DefaultModel
	case ProviderGoogle:
		return googleemb.DefaultModel
	default:
		return ""
	}
}

// defaultDimensionsFor picks the native output size of each provider's
// default model.
func defaultDimensionsFor(p ProviderType) int {
	switch p {
	case ProviderOpenAI:
		return 1536
	case ProviderGoogle:
		return 768
	default:
		return 256
	}
}

// setupConfigPath returns where the wizard writes its config.
// A variable so tests can point it into a temp dir.
var setupConfigPath = config.DefaultConfigPath

// finalizeSetup stores the API key in the OS keyring and writes the config
// file. Without overwrite, an existing config is an error that tells the
// user about --force; with it, the file is replaced wholesale.
func finalizeSetup(result setupResult, store secrets.Store, overwrite bool) (string, error) {
	// The key goes in first. If the config write below fails the keyring
	// entry stays behind, which is harmless: a re-run overwrites it.
	if result.Provider != ProviderLocal {
		name := string(result.Provider) + "-api-key"
		if err := store.Store(serviceName, name, result.APIKey); err != nil {
			return "", semerr.Errorf(semerr.CodeSecretStoreFailure, "storing %s API key: %w", result.Provider, err)
		}
	}

	cfgPath, err := setupConfigPath()
	if err != nil {
		return "", err
	}
	if !overwrite {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return "", semerr.Errorf(semerr.CodeConfigAlreadyExists,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", semerr.Errorf(semerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(renderSetupYAML(result)), 0o600); err != nil {
		return "", semerr.Errorf(semerr.CodeConfigLoadReadFailure, "writing config to %s: %w", cfgPath, err)
	}

	return cfgPath, nil
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up semdex interactively",
		Long: `Walk through first-time setup in the terminal: pick an embedding
provider, validate its API key with a live call, and point semdex at the
directory it should index.

The key lands in the OS keyring; the written config only carries a
keyring:// reference to it. Re-run with --force to start over.`,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "Replace an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	// The wizard is a TUI; a pipe or redirect cannot drive it.
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"semdex init needs an interactive terminal.\n"+
				"For scripted setups, write ~/.config/semdex/semdex.yaml yourself and use 'semdex secret set' for keys.")
		return semerr.New(semerr.CodeCLISetupFailure, "semdex init: stdin is not a terminal")
	}

	overwrite, _ := cmd.Flags().GetBool("force")

	m := newWizard(secretStoreFactory())
	m.overwrite = overwrite

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return semerr.Errorf(semerr.CodeCLISetupFailure, "init wizard error: %w", err)
	}

	fw, ok := final.(wizard)
	if !ok {
		return semerr.New(semerr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fw.fatalErr != nil {
		return semerr.Errorf(semerr.CodeCLISetupFailure, "init failed: %w", fw.fatalErr)
	}

	// Quitting before the done phase is a plain abort, not an error.
	return nil
}

// isTerminal reports whether f is a terminal file descriptor.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
