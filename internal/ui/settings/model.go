package settings

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/api"
	"github.com/nhle/tasys/internal/credential"
	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeView           Mode = iota // Show the active settings
	ModeForm                       // Edit form
	ModeValidating                 // Testing connection
	ModeValidateResult             // Show connection test result
)

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg is sent after the settings were written. The root model
// rebuilds its API client from it.
type SavedMsg struct {
	Config *model.AppConfig
	Token  string
}

// ValidateResultMsg carries the result of a connection test.
type ValidateResultMsg struct {
	TaskCount int
	Err       error
}

// savedInternalMsg is sent after the settings are persisted.
type savedInternalMsg struct {
	cfg   *model.AppConfig
	token string
	err   error
}

// SaveFunc persists the configuration and token.
type SaveFunc func(cfg *model.AppConfig, token string) error

// ProbeFunc checks that the task API answers at baseURL.
type ProbeFunc func(ctx context.Context, baseURL, token string) (int, error)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	baseURL     string
	token       string
	timeoutSec  string
	backend     string
	recentCount string
}

// Model is the Bubble Tea model for the settings UI.
type Model struct {
	mode  Mode
	cfg   *model.AppConfig
	token string

	form *huh.Form
	fb   *formBindings

	save  SaveFunc
	probe ProbeFunc

	validError error
	taskCount  int
	spinner    spinner.Model

	// Status message for transient feedback
	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates a settings view for cfg. Saving writes to configPath and
// stores the token in the keyring.
func New(cfg *model.AppConfig, token, configPath string, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeView,
		cfg:     cfg,
		token:   token,
		fb:      &formBindings{},
		save:    DefaultSave(configPath),
		probe:   DefaultProbe,
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// WithSave replaces how settings are persisted.
func (m Model) WithSave(fn SaveFunc) Model {
	m.save = fn
	return m
}

// WithProbe replaces how the connection is tested.
func (m Model) WithProbe(fn ProbeFunc) Model {
	m.probe = fn
	return m
}

// DefaultSave writes cfg to path with viper and the token to the keyring.
func DefaultSave(path string) SaveFunc {
	return func(cfg *model.AppConfig, token string) error {
		if err := model.SaveConfig(path, cfg); err != nil {
			return err
		}
		if err := credential.SetToken(token); err != nil {
			return fmt.Errorf("config saved but token was not: %w", err)
		}
		return nil
	}
}

// DefaultProbe lists tasks through a fresh API client.
func DefaultProbe(ctx context.Context, baseURL, token string) (int, error) {
	c := api.NewClient(baseURL, api.WithToken(token), api.WithMaxRetries(0), api.WithTimeout(10*time.Second))
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Editing reports whether keyboard input belongs to the settings form.
func (m Model) Editing() bool {
	return m.mode != ModeView
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedInternalMsg:
		m.mode = ModeView
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			return m, nil
		}
		m.cfg = msg.cfg
		m.token = msg.token
		m.statusMsg = "Settings saved"
		return m, func() tea.Msg { return SavedMsg{Config: msg.cfg, Token: msg.token} }

	case ValidateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		m.validError = msg.Err
		m.taskCount = msg.TaskCount
		m.mode = ModeValidateResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

// handleKeyMsg processes key messages based on the current mode.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeView:
		return m.handleViewKeys(msg)
	case ModeForm:
		return m.updateForm(msg)
	case ModeValidateResult:
		switch msg.String() {
		case "enter", "esc":
			m.mode = ModeView
			m.validError = nil
			return m, nil
		case "r":
			return m.startValidate()
		}
	case ModeValidating:
		// Only allow escape during validation
		if msg.String() == "esc" {
			m.mode = ModeView
		}
	}
	return m, nil
}

func (m Model) handleViewKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case msg.String() == "e":
		m.loadBindings()
		m.form = m.buildForm()
		m.mode = ModeForm
		m.statusMsg = ""
		return m, m.form.Init()

	case msg.String() == "t":
		return m.startValidate()
	}
	return m, nil
}

func (m Model) startValidate() (Model, tea.Cmd) {
	m.mode = ModeValidating
	baseURL, token, probe := m.cfg.API.BaseURL, m.token, m.probe
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			n, err := probe(context.Background(), baseURL, token)
			return ValidateResultMsg{TaskCount: n, Err: err}
		},
	)
}

func (m *Model) loadBindings() {
	*m.fb = formBindings{
		baseURL:     m.cfg.API.BaseURL,
		token:       m.token,
		timeoutSec:  strconv.Itoa(m.cfg.API.TimeoutSec),
		backend:     m.cfg.State.Backend,
		recentCount: strconv.Itoa(m.cfg.Display.RecentCount),
	}
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Placeholder("http://localhost:3001").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API token").
				Description("Stored in the system keyring. Leave empty for none.").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token),
			huh.NewInput().
				Title("Request timeout (seconds)").
				Value(&m.fb.timeoutSec).
				Validate(validatePositive("Timeout")),
			huh.NewSelect[string]().
				Title("Watermark storage").
				Description("Takes effect on next start.").
				Options(
					huh.NewOption("SQLite file", model.StateBackendSQLite),
					huh.NewOption("Redis", model.StateBackendRedis),
					huh.NewOption("Memory (not persisted)", model.StateBackendMemory),
				).
				Value(&m.fb.backend),
			huh.NewInput().
				Title("Recent tasks on dashboard").
				Value(&m.fb.recentCount).
				Validate(validatePositive("Recent tasks")),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		return m, m.saveSettings()
	}
	if m.form.State == huh.StateAborted {
		m.mode = ModeView
		return m, nil
	}
	return m, cmd
}

// Apply returns a copy of cfg with the form values applied.
func (m Model) Apply(cfg model.AppConfig) *model.AppConfig {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.timeoutSec)); err == nil && n > 0 {
		cfg.API.TimeoutSec = n
	}
	if m.fb.backend != "" {
		cfg.State.Backend = m.fb.backend
	}
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.recentCount)); err == nil && n > 0 {
		cfg.Display.RecentCount = n
	}
	return &cfg
}

func (m Model) saveSettings() tea.Cmd {
	cfg := m.Apply(*m.cfg)
	token := strings.TrimSpace(m.fb.token)
	save := m.save
	return func() tea.Msg {
		err := save(cfg, token)
		return savedInternalMsg{cfg: cfg, token: token, err: err}
	}
}

// --- View ---

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return m.viewForm()
	case ModeValidating:
		return m.frame(fmt.Sprintf(
			"%s Testing connection to %s...\n\nPress esc to cancel.",
			m.spinner.View(), m.cfg.API.BaseURL,
		))
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		return m.viewSettings()
	}
}

func (m Model) viewSettings() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Settings"))
	b.WriteString("\n\n")

	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(24)
	row := func(k, v string) {
		b.WriteString(label.Render(k))
		b.WriteString(v)
		b.WriteString("\n")
	}

	tokenState := "not set"
	if m.token != "" {
		tokenState = "set"
	}
	row("API base URL", m.cfg.API.BaseURL)
	row("API token", tokenState)
	row("Request timeout", fmt.Sprintf("%ds", m.cfg.API.TimeoutSec))
	row("Retries on 429", strconv.Itoa(m.cfg.API.MaxRetries))
	row("Watermark storage", m.cfg.State.Backend)
	switch m.cfg.State.Backend {
	case model.StateBackendSQLite:
		row("State file", m.cfg.State.Path)
	case model.StateBackendRedis:
		row("Redis", fmt.Sprintf("%s db %d", m.cfg.State.RedisAddr, m.cfg.State.RedisDB))
	}
	row("Recent tasks", strconv.Itoa(m.cfg.Display.RecentCount))
	row("Log file", m.cfg.Log.File)

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true).
			Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"e edit | t test connection | esc back",
	))

	return m.frame(b.String())
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}
	return m.frame(m.form.View())
}

func (m Model) viewValidateResult() string {
	var content string
	if m.validError != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		content = errStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("r retry | enter/esc back")
	} else {
		okStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorGreen)
		content = okStyle.Render("Connection successful") + "\n\n" +
			fmt.Sprintf("The server returned %d tasks.", m.taskCount) + "\n\n" +
			lipgloss.NewStyle().Foreground(theme.ColorGray).
				Render("enter/esc back")
	}
	return m.frame(content)
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://localhost:3001)")
	}
	return nil
}

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}
