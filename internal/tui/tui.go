package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"

	"markket/internal/checkout"
	"markket/internal/loader"
	"markket/internal/receipt"
	"markket/internal/store"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewSyncing
	ViewCatalog
	ViewCheckout
	ViewReceipt
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

// Syncer refreshes the local content store.
type Syncer interface {
	SyncAll(ctx context.Context, names []string, force bool, onProgress loader.ProgressFunc) ([]loader.Stats, error)
}

// Config holds the collaborators passed from the CLI layer.
type Config struct {
	Store      store.Store
	Sync       Syncer
	Payments   checkout.PaymentLinker
	Receipts   *receipt.Resolver
	Collection string
	Lang       language.Tag
	Location   *time.Location
	Logger     *slog.Logger

	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	// generation increases whenever a screen with a pending request is
	// left. Results tagged with an older generation are dropped.
	generation int

	welcome  welcomeModel
	syncing  syncingModel
	catalog  catalogModel
	checkout checkoutModel
	receipt  receiptModel
	err      error
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = "products"
	}
	if cfg.Lang == language.Und {
		cfg.Lang = language.AmericanEnglish
	}
	return Model{
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return checkStore(m.config)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewReceipt {
			m.receipt.resize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewCheckout && m.state != ViewReceipt {
				return m, tea.Quit
			}
		}

	case submitDoneMsg:
		if msg.gen != m.generation || m.state != ViewCheckout {
			m.config.Logger.Debug("dropping stale checkout result", "gen", msg.gen, "current", m.generation)
			return m, nil
		}
	case receiptDoneMsg:
		if msg.gen != m.generation || m.state != ViewReceipt {
			m.config.Logger.Debug("dropping stale receipt result", "gen", msg.gen, "current", m.generation)
			return m, nil
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.welcome.ready {
			if m.welcome.status == storeReady {
				return m, m.openCatalog()
			}
			return m, m.startSync()
		}

	case ViewSyncing:
		m.syncing, cmd = m.syncing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.syncing.done {
			return m, m.openCatalog()
		}

	case ViewCatalog:
		m.catalog, cmd = m.catalog.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "enter":
				if it, ok := m.catalog.selected(); ok {
					return m, m.openCheckout(it)
				}
			case "s":
				return m, m.startSync()
			case "r":
				m.state = ViewReceipt
				m.receipt = newReceiptModel(m.width, m.height)
				return m, nil
			}
		}

	case ViewCheckout:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			m.generation++
			m.state = ViewCatalog
			return m, nil
		}
		m.checkout, cmd = m.checkout.Update(msg, m.config, m.generation)
		return m, cmd

	case ViewReceipt:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			m.generation++
			m.state = ViewCatalog
			return m, nil
		}
		m.receipt, cmd = m.receipt.Update(msg, m.config, m.generation)
		return m, cmd
	}

	return m, nil
}

func (m *Model) startSync() tea.Cmd {
	if m.config.Sync == nil {
		return m.openCatalog()
	}
	m.state = ViewSyncing
	m.syncing = newSyncingModel()
	return tea.Batch(m.syncing.spinner.Tick, runSync(m.config))
}

func (m *Model) openCatalog() tea.Cmd {
	m.state = ViewCatalog
	m.catalog = catalogModel{collection: m.config.Collection, lang: m.config.Lang}
	return loadCatalog(m.config)
}

func (m *Model) openCheckout(it store.Item) tea.Cmd {
	storefront, err := storefrontDoc(m.config.Store)
	if err != nil {
		m.err = err
		return nil
	}
	m.generation++
	m.checkout = newCheckoutModel(it, storefront, m.config)
	m.state = ViewCheckout
	return m.checkout.focusCmd()
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewSyncing:
		return m.syncing.View(m.width, m.height)
	case ViewCatalog:
		return m.catalog.View(m.width, m.height)
	case ViewCheckout:
		return m.checkout.View(m.width, m.height)
	case ViewReceipt:
		return m.receipt.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	_, err := p.Run()
	return err
}
