// Package flow implements the Saque Essencial conversation state machine:
// it validates each inbound event against the sender's current state,
// advances the conversation, and decides which prompt goes out.
package flow

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vmartins/esterbot/bot/dedup"
	"github.com/vmartins/esterbot/bot/fees"
	"github.com/vmartins/esterbot/bot/session"
	"github.com/vmartins/esterbot/core/logger"
	"github.com/vmartins/esterbot/core/whatsapp"
)

// Button ids understood by the flow.
const (
	BtnHasLimit    = "has_limit"
	BtnNoLimit     = "no_limit"
	BtnContinue    = "continue"
	BtnRetry       = "retry"
	BtnTalkToAgent = "talk_to_agent"
)

var limitDecisionButtons = []whatsapp.Button{
	{ID: BtnHasLimit, Title: "1️⃣ Tenho limite"},
	{ID: BtnNoLimit, Title: "2️⃣ Não tenho limite"},
}

var postCalculationButtons = []whatsapp.Button{
	{ID: BtnContinue, Title: "Sim, Continuar"},
	{ID: BtnRetry, Title: "Tentar Outro valor"},
	{ID: BtnTalkToAgent, Title: "Falar com Atendente"},
}

// Gateway delivers outbound messages. Sends are fire-and-forget from the
// flow's perspective; a failed or slow send never blocks or corrupts state.
type Gateway interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error
}

// Simulation captures a completed calculation for optional persistence.
type Simulation struct {
	Sender         string
	Name           string
	Limit          int
	Installments   int
	Withdrawal     float64
	PerInstallment float64
}

// Recorder persists completed simulations.
type Recorder interface {
	RecordSimulation(ctx context.Context, sim Simulation) error
}

// Options wires the engine's collaborators.
type Options struct {
	Sessions *session.Store
	Guard    *dedup.Guard
	Gateway  Gateway
	// Recorder is optional; nil disables history recording.
	Recorder Recorder
}

// Engine is the conversation state machine.
type Engine struct {
	sessions *session.Store
	guard    *dedup.Guard
	gateway  Gateway
	recorder Recorder
}

// New constructs the engine. Sessions, Guard and Gateway are required.
func New(opts Options) *Engine {
	return &Engine{
		sessions: opts.Sessions,
		guard:    opts.Guard,
		gateway:  opts.Gateway,
		recorder: opts.Recorder,
	}
}

// HandleEvent processes one inbound event end to end: dedup check, state
// transition under the sender's lock, outbound prompt. It never returns an
// error; every failure mode is local to the conversation.
func (e *Engine) HandleEvent(ctx context.Context, ev whatsapp.Event) {
	if ev.MessageID == "" || ev.Sender == "" {
		logger.Warn(ctx, "flow", "event.incomplete")
		return
	}

	if e.guard.CheckAndMark(ev.MessageID) {
		logger.Debug(ctx, "flow", "event.duplicate",
			slog.String("message_id", ev.MessageID),
		)
		return
	}

	switch ev.Type {
	case whatsapp.EventText:
		e.sessions.Update(ev.Sender, func(rec *session.Record) *session.Record {
			return e.handleText(ctx, ev.Sender, strings.TrimSpace(ev.Text), rec)
		})
	case whatsapp.EventButton:
		e.sessions.Update(ev.Sender, func(rec *session.Record) *session.Record {
			return e.handleButton(ctx, ev.Sender, ev.ButtonID, rec)
		})
	default:
		logger.Debug(ctx, "flow", "event.unsupported",
			slog.String("type", string(ev.Type)),
		)
	}
}

func (e *Engine) handleText(ctx context.Context, sender, text string, rec *session.Record) *session.Record {
	if rec == nil {
		e.sendText(ctx, sender, msgGreeting)
		e.logTransition(ctx, sender, "", session.StateAwaitingName)
		return &session.Record{State: session.StateAwaitingName}
	}

	switch rec.State {
	case session.StateAwaitingName:
		rec.Name = text
		rec.State = session.StateAwaitingLimitDecision
		e.sendButtons(ctx, sender, msgHasLimit(rec.Name), limitDecisionButtons)
		e.logTransition(ctx, sender, session.StateAwaitingName, rec.State)

	case session.StateAwaitingLimit:
		limit, ok := parsePositiveDigits(text)
		if !ok {
			e.reject(ctx, sender, rec.State, msgLimitFormatHint)
			return rec
		}
		rec.Limit = limit
		rec.State = session.StateAwaitingInstallments
		e.sendText(ctx, sender, msgLimitSaved(limit))
		e.sendText(ctx, sender, msgAskInstallments)
		e.logTransition(ctx, sender, session.StateAwaitingLimit, rec.State)

	case session.StateAwaitingInstallments:
		installments, ok := parsePositiveDigits(text)
		if !ok {
			e.reject(ctx, sender, rec.State, msgInstallmentsFormatHint)
			return rec
		}
		if installments < fees.MinInstallments || installments > fees.MaxInstallments {
			e.reject(ctx, sender, rec.State, msgInstallmentsRangeHint)
			return rec
		}
		rec.Installments = installments
		e.sendText(ctx, sender, msgInstallmentsSaved(installments))
		e.presentCalculation(ctx, sender, rec)

	case session.StateAwaitingNewValue:
		target, ok := parsePositiveDigits(text)
		if !ok {
			e.reject(ctx, sender, rec.State, msgNewValueFormatHint)
			return rec
		}
		installments, feasible := fees.AffordableInstallments(float64(rec.Limit), float64(target))
		if !feasible {
			ceiling := fees.MaxWithdrawal(float64(rec.Limit), fees.MinInstallments)
			e.sendText(ctx, sender, msgNewValueCeiling(ceiling))
			return rec
		}
		rec.Installments = installments
		e.sendText(ctx, sender, msgNewValueFeasible(target, installments))
		e.presentCalculation(ctx, sender, rec)

	default:
		// Free text while a button decision is pending carries no meaning.
		logger.Debug(ctx, "flow", "text.ignored",
			slog.String("state", string(rec.State)),
		)
	}

	return rec
}

func (e *Engine) handleButton(ctx context.Context, sender, buttonID string, rec *session.Record) *session.Record {
	if rec == nil {
		logger.Debug(ctx, "flow", "button.no_conversation",
			slog.String("button", buttonID),
		)
		return nil
	}

	switch {
	case buttonID == BtnHasLimit && rec.State == session.StateAwaitingLimitDecision:
		rec.State = session.StateAwaitingLimit
		e.sendText(ctx, sender, msgAskLimit(rec.Name))
		e.logTransition(ctx, sender, session.StateAwaitingLimitDecision, rec.State)

	case buttonID == BtnNoLimit && rec.State == session.StateAwaitingLimitDecision:
		e.sendText(ctx, sender, msgNoLimit)
		e.logTerminal(ctx, sender, "declined")
		return nil

	case buttonID == BtnContinue && rec.State == session.StatePostCalculation:
		e.sendText(ctx, sender, msgContinueSimulation)
		e.logTerminal(ctx, sender, "confirmed")
		return nil

	case buttonID == BtnRetry && rec.State == session.StatePostCalculation:
		// Retry keeps name and limit; only the installment choice is reset.
		rec.Installments = 0
		rec.State = session.StateAwaitingNewValue
		e.sendText(ctx, sender, msgAskNewValue)
		e.logTransition(ctx, sender, session.StatePostCalculation, rec.State)

	case buttonID == BtnTalkToAgent && rec.State == session.StatePostCalculation:
		e.sendText(ctx, sender, msgTalkToAgent)
		e.logTerminal(ctx, sender, "handoff")
		return nil

	default:
		logger.Debug(ctx, "flow", "button.ignored",
			slog.String("button", buttonID),
			slog.String("state", string(rec.State)),
		)
	}

	return rec
}

// presentCalculation runs the simulation, presents the result with the
// decision menu, and moves the conversation to the post-calculation state.
func (e *Engine) presentCalculation(ctx context.Context, sender string, rec *session.Record) {
	sim := fees.Simulate(float64(rec.Limit), rec.Installments)
	prev := rec.State
	rec.State = session.StatePostCalculation
	e.sendButtons(ctx, sender, msgResult(rec.Installments, sim), postCalculationButtons)
	e.logTransition(ctx, sender, prev, rec.State)
	e.record(ctx, Simulation{
		Sender:         sender,
		Name:           rec.Name,
		Limit:          rec.Limit,
		Installments:   rec.Installments,
		Withdrawal:     sim.Withdrawal,
		PerInstallment: sim.PerInstallment,
	})
}

// record persists the simulation without holding up the conversation.
func (e *Engine) record(ctx context.Context, sim Simulation) {
	if e.recorder == nil {
		return
	}
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		recCtx, cancel := context.WithTimeout(bgCtx, 5*time.Second)
		defer cancel()
		if err := e.recorder.RecordSimulation(recCtx, sim); err != nil {
			logger.Warn(bgCtx, "flow", "history.record_failed",
				slog.String("err", err.Error()),
			)
		}
	}()
}

func (e *Engine) sendText(ctx context.Context, to, body string) {
	if err := e.gateway.SendText(ctx, to, body); err != nil {
		logger.Warn(ctx, "flow", "send.text_failed",
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) sendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) {
	if err := e.gateway.SendButtons(ctx, to, body, buttons); err != nil {
		logger.Warn(ctx, "flow", "send.buttons_failed",
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) reject(ctx context.Context, sender string, state session.State, hint string) {
	e.sendText(ctx, sender, hint)
	logger.Debug(ctx, "flow", "input.rejected",
		slog.String("state", string(state)),
	)
}

func (e *Engine) logTransition(ctx context.Context, sender string, from, to session.State) {
	logger.Debug(ctx, "flow", "state.transition",
		slog.String("sender", logger.SanitizeLimit(sender, 32)),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

func (e *Engine) logTerminal(ctx context.Context, sender, outcome string) {
	logger.Info(ctx, "flow", "conversation.end",
		slog.String("sender", logger.SanitizeLimit(sender, 32)),
		slog.String("outcome", outcome),
	)
}

// parsePositiveDigits accepts only unsigned digit strings representing a
// positive value, mirroring the strictness the prompts ask for.
func parsePositiveDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
