package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexchat/internal/bus"
	"github.com/normanking/cortexchat/internal/discovery"
	"github.com/normanking/cortexchat/internal/mode"
	"github.com/normanking/cortexchat/internal/models"
)

// State identifies where the orchestrator is in its startup-to-exit
// lifecycle.
type State int

const (
	StateStartup State = iota
	StateSelectModel
	StateSelectMode
	StateLoop
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "startup"
	case StateSelectModel:
		return "select_model"
	case StateSelectMode:
		return "select_mode"
	case StateLoop:
		return "loop"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Orchestrator owns the Session and drives it through startup, model and
// mode selection, and the conversational loop. Recoverable turn outcomes
// surface a message and loop again; only an explicit quit, end of input, or
// an interrupt reaches EXITED, and only an unrecoverable startup failure
// returns an error.
type Orchestrator struct {
	session  *Session
	executor *Executor
	registry *models.Registry
	reader   *LineReader
	eventBus *bus.EventBus
	prober   *discovery.Prober
	out      io.Writer
	logger   zerolog.Logger

	engine         string
	defaultModel   string
	voiceAvailable bool

	state   State
	modeSet bool
}

// OrchestratorOptions assembles an Orchestrator. DefaultModel is optional:
// when set it is selected automatically if installed, and stands in for the
// registry when discovery returns nothing or cannot run at all.
type OrchestratorOptions struct {
	Executor       *Executor
	Registry       *models.Registry
	Input          io.Reader
	Out            io.Writer
	EventBus       *bus.EventBus
	Prober         *discovery.Prober
	Logger         zerolog.Logger
	Engine         string
	DefaultModel   string
	VoiceAvailable bool
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Engine == "" {
		opts.Engine = "ollama"
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	logger := opts.Logger.With().Str("component", "session").Logger()

	// The controller needs a value before the startup prompt runs; no turn
	// executes until the user has answered it.
	modes := mode.NewController(mode.Text, opts.EventBus, opts.Logger)

	return &Orchestrator{
		session:        NewSession(modes),
		executor:       opts.Executor,
		registry:       opts.Registry,
		reader:         NewLineReader(opts.Input),
		eventBus:       opts.EventBus,
		prober:         opts.Prober,
		out:            opts.Out,
		logger:         logger,
		engine:         opts.Engine,
		defaultModel:   opts.DefaultModel,
		voiceAvailable: opts.VoiceAvailable,
		state:          StateStartup,
	}
}

// Session exposes the orchestrator's session for inspection.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run drives the state machine until EXITED. It returns nil on any orderly
// shutdown (quit command, closed input, interrupt) and an error only when
// startup cannot complete, such as model discovery failing with no default
// model configured.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.session.Running = true
	o.logger.Info().Str("session_id", o.session.ID).Msg("Session started")
	o.publish(bus.EventTypeSessionStarted, map[string]any{"session_id": o.session.ID})
	defer func() {
		o.publish(bus.EventTypeSessionEnded, map[string]any{"session_id": o.session.ID})
		o.logger.Info().Str("session_id", o.session.ID).Msg("Session ended")
	}()

	for o.state != StateExited {
		var err error
		switch o.state {
		case StateStartup:
			fmt.Fprintln(o.out, "Welcome to cortex-chat. Talk to a local model by typing or speaking.")
			o.probeEngines(ctx)
			o.setState(StateSelectModel)
		case StateSelectModel:
			err = o.runSelectModel(ctx)
		case StateSelectMode:
			err = o.runSelectMode(ctx)
		case StateLoop:
			err = o.runLoop(ctx)
		default:
			err = fmt.Errorf("orchestrator reached invalid state %d", o.state)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// probeEngines reports which local engines answered. Offline engines are
// informational only; the selection steps and the turn executor handle their
// own failures.
func (o *Orchestrator) probeEngines(ctx context.Context) {
	if o.prober == nil || o.prober.Len() == 0 {
		return
	}
	fmt.Fprintln(o.out, "Checking local engines:")
	for _, r := range o.prober.Run(ctx) {
		if r.Err != nil {
			fmt.Fprintf(o.out, "  %-16s offline (%v)\n", r.Name, r.Err)
		} else {
			fmt.Fprintf(o.out, "  %-16s online (%dms)\n", r.Name, r.Latency.Milliseconds())
		}
	}
}

// runSelectModel resolves session.SelectedModel. It re-prompts indefinitely
// on an invalid choice and only errors when discovery is unreachable with no
// default model to fall back on.
func (o *Orchestrator) runSelectModel(ctx context.Context) error {
	for {
		list, err := o.registry.ListModels(ctx, o.engine)
		if err != nil {
			if o.defaultModel == "" {
				return fmt.Errorf("model discovery failed and no default model is configured: %w", err)
			}
			o.logger.Warn().Err(err).Str("fallback", o.defaultModel).Msg("Model discovery failed, using configured model")
			fmt.Fprintf(o.out, "Model discovery failed (%v).\n", err)
			o.chooseModel(models.ModelInfo{ID: o.defaultModel, Name: o.defaultModel})
			o.setState(o.nextAfterModel())
			return nil
		}
		o.publish(bus.EventTypeModelsListed, map[string]any{"engine": o.engine, "count": len(list)})

		if len(list) == 0 {
			if o.defaultModel != "" {
				fmt.Fprintln(o.out, "No installed models were found.")
				o.chooseModel(models.ModelInfo{ID: o.defaultModel, Name: o.defaultModel})
				o.setState(o.nextAfterModel())
				return nil
			}
			fmt.Fprintln(o.out, "No models are installed. Install one (for example: ollama pull llama3.2),")
			fmt.Fprint(o.out, "then press Enter to look again, or 'q' to quit: ")
			line, err := o.reader.ReadLine(ctx)
			if err != nil || isQuit(line) {
				o.shutdown("Goodbye.")
				return nil
			}
			continue
		}

		if o.defaultModel != "" {
			if chosen, ok := findModel(list, o.defaultModel); ok {
				o.chooseModel(chosen)
				o.setState(o.nextAfterModel())
				return nil
			}
			fmt.Fprintf(o.out, "Configured model %q is not installed.\n", o.defaultModel)
		}

		fmt.Fprintln(o.out, "\nAvailable models:")
		for i, m := range list {
			detail := m.ParameterSize
			if m.Size > 0 {
				if detail != "" {
					detail += ", "
				}
				detail += models.FormatSize(m.Size)
			}
			if detail != "" {
				fmt.Fprintf(o.out, "  %2d) %s  (%s)\n", i+1, m.ID, detail)
			} else {
				fmt.Fprintf(o.out, "  %2d) %s\n", i+1, m.ID)
			}
		}

		for {
			fmt.Fprint(o.out, "Select a model (number or name): ")
			line, err := o.reader.ReadLine(ctx)
			if err != nil {
				o.shutdown("")
				return nil
			}
			if isQuit(line) {
				o.shutdown("Goodbye.")
				return nil
			}
			chosen, err := models.Select(list, line)
			if err != nil {
				fmt.Fprintf(o.out, "%v\n", err)
				continue
			}
			o.chooseModel(chosen)
			o.setState(o.nextAfterModel())
			return nil
		}
	}
}

// runSelectMode asks how the user wants to talk. There is no silent
// default; the prompt repeats until it gets a usable answer.
func (o *Orchestrator) runSelectMode(ctx context.Context) error {
	fmt.Fprintln(o.out, "\nHow do you want to talk?")
	fmt.Fprintln(o.out, "  1) text  - type your messages")
	fmt.Fprintln(o.out, "  2) voice - speak into the microphone")

	for {
		fmt.Fprint(o.out, "Mode (text/voice): ")
		line, err := o.reader.ReadLine(ctx)
		if err != nil {
			o.shutdown("")
			return nil
		}
		if isQuit(line) {
			o.shutdown("Goodbye.")
			return nil
		}

		m, err := mode.Parse(line)
		if err != nil {
			fmt.Fprintln(o.out, "Please answer 'text' or 'voice' (or 1/2).")
			continue
		}
		if m == mode.Voice && !o.voiceAvailable {
			fmt.Fprintln(o.out, "Voice input is not available here (no recorder or speech engine). Pick text.")
			continue
		}

		o.session.Modes.Set(m)
		o.modeSet = true
		if m == mode.Voice {
			fmt.Fprintln(o.out, "Voice mode. Press Enter whenever you want to talk.")
		} else {
			fmt.Fprintln(o.out, "Text mode. Type a message and press Enter.")
		}
		o.setState(StateLoop)
		return nil
	}
}

// runLoop is the conversational loop. It returns with the state moved to
// SELECT_MODE on a mode-change command, to SELECT_MODEL when a defect left
// the session without a model, and to EXITED on quit or closed input.
func (o *Orchestrator) runLoop(ctx context.Context) error {
	for {
		o.promptTurn()
		line, err := o.reader.ReadLine(ctx)
		if err != nil {
			o.shutdown("")
			return nil
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "q", "quit", "exit":
			o.shutdown("Goodbye.")
			return nil
		case "m", "mode":
			o.setState(StateSelectMode)
			return nil
		}

		turn, err := o.executor.RunTurn(ctx, o.session, line)
		if err != nil {
			// A defect, not an engine failure. Report it and keep the
			// session alive, re-selecting the model if it was lost.
			o.logger.Error().Err(err).Msg("Turn aborted")
			fmt.Fprintf(o.out, "Something went wrong: %v\n", err)
			if errors.Is(err, ErrNoModelSelected) {
				o.setState(StateSelectModel)
				return nil
			}
			continue
		}
		o.reportTurn(turn)
	}
}

func (o *Orchestrator) promptTurn() {
	if o.session.CurrentMode() == mode.Voice {
		fmt.Fprint(o.out, "[voice] Press Enter to talk (m = mode, q = quit): ")
	} else {
		fmt.Fprint(o.out, "You: ")
	}
}

// reportTurn prints the user-facing explanation for every recoverable
// outcome. A completed turn already showed its reply.
func (o *Orchestrator) reportTurn(turn *Turn) {
	switch turn.Outcome {
	case OutcomeEmptyInput:
		if turn.Mode == mode.Voice {
			fmt.Fprintln(o.out, "No speech detected. Press Enter to try again.")
		} else {
			fmt.Fprintln(o.out, "Type a message, or 'q' to quit.")
		}
	case OutcomeTranscriptionFailed:
		if turn.Err != "" {
			fmt.Fprintf(o.out, "Transcription failed: %s\n", turn.Err)
		} else {
			fmt.Fprintln(o.out, "I couldn't make out any words there. Try again.")
		}
	case OutcomeEngineError:
		fmt.Fprintf(o.out, "Error: %s\n", turn.Err)
	}
}

func (o *Orchestrator) chooseModel(m models.ModelInfo) {
	o.session.SelectedModel = m.ID
	o.logger.Info().Str("model", m.ID).Msg("Model selected")
	o.publish(bus.EventTypeModelSelected, map[string]any{"model": m.ID})
	fmt.Fprintf(o.out, "Using model %s.\n", m.ID)
}

// nextAfterModel returns to the loop when re-selecting mid-session, and to
// the mode prompt during first startup.
func (o *Orchestrator) nextAfterModel() State {
	if o.modeSet {
		return StateLoop
	}
	return StateSelectMode
}

func (o *Orchestrator) shutdown(msg string) {
	if msg != "" {
		fmt.Fprintln(o.out, msg)
	}
	o.session.Running = false
	o.setState(StateExited)
}

func (o *Orchestrator) setState(s State) {
	if s == o.state {
		return
	}
	o.logger.Debug().Str("from", o.state.String()).Str("to", s.String()).Msg("State change")
	o.publish(bus.EventTypeSessionStateChanged, map[string]any{
		"from": o.state.String(),
		"to":   s.String(),
	})
	o.state = s
}

func (o *Orchestrator) publish(t bus.EventType, data map[string]any) {
	if o.eventBus == nil {
		return
	}
	o.eventBus.Publish(bus.Event{Type: t, Data: data})
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

func findModel(list []models.ModelInfo, id string) (models.ModelInfo, bool) {
	for _, m := range list {
		if strings.EqualFold(m.ID, id) {
			return m, true
		}
	}
	return models.ModelInfo{}, false
}
