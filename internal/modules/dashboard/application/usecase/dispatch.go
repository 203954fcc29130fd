package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

var (
	// ErrNoAction is returned when a button or form has no message attached.
	ErrNoAction = errors.New("node has no action")
	// ErrNodeNotFound is returned when a layout path names no node.
	ErrNodeNotFound = errors.New("layout node not found")
)

// DispatchUseCase resolves user-triggered messages against the session document and
// hands them to the channel.
type DispatchUseCase struct {
	session *Session
	sender  port.ActionSender
}

func NewDispatchUseCase(session *Session, sender port.ActionSender) *DispatchUseCase {
	return &DispatchUseCase{session: session, sender: sender}
}

// Click resolves tx and sends it. Nothing is sent when any pointer fails to resolve.
func (uc *DispatchUseCase) Click(ctx context.Context, tx *domain.DashboardTx) (domain.DashboardTx, error) {
	if tx == nil {
		return domain.DashboardTx{}, ErrNoAction
	}
	return uc.dispatch(ctx, tx.Template)
}

// Submit merges the submitted field values into the form's message, then resolves and
// sends it like Click.
func (uc *DispatchUseCase) Submit(ctx context.Context, form domain.Form, values map[string]any) (domain.DashboardTx, error) {
	if form.OnSubmit == nil {
		return domain.DashboardTx{}, ErrNoAction
	}
	merged, err := domain.MergeFormValues(form, values)
	if err != nil {
		slog.Warn("dispatch form merge failed", slog.Any("error", err))
		return domain.DashboardTx{}, err
	}
	return uc.dispatch(ctx, merged)
}

// ClickAt clicks the button or bool_button at path in the session layout, a location
// such as "/0/children/1".
func (uc *DispatchUseCase) ClickAt(ctx context.Context, path string) (domain.DashboardTx, error) {
	node, err := uc.nodeAt(path)
	if err != nil {
		return domain.DashboardTx{}, err
	}
	switch n := node.(type) {
	case domain.Button:
		return uc.Click(ctx, n.OnClick)
	case domain.BoolButton:
		return uc.Click(ctx, n.OnClick)
	default:
		return domain.DashboardTx{}, fmt.Errorf("%w: %s is a %s", ErrNoAction, path, node.Kind())
	}
}

// SubmitAt submits the form at path in the session layout.
func (uc *DispatchUseCase) SubmitAt(ctx context.Context, path string, values map[string]any) (domain.DashboardTx, error) {
	node, err := uc.nodeAt(path)
	if err != nil {
		return domain.DashboardTx{}, err
	}
	form, ok := node.(domain.Form)
	if !ok {
		return domain.DashboardTx{}, fmt.Errorf("%w: %s is a %s, not a form", ErrNoAction, path, node.Kind())
	}
	return uc.Submit(ctx, form, values)
}

func (uc *DispatchUseCase) nodeAt(path string) (domain.Node, error) {
	layout, ok := uc.session.Layout()
	if !ok {
		return nil, &domain.ProtocolOrderingError{Reason: "no layout received yet"}
	}
	var found domain.Node
	stop := errors.New("found")
	err := domain.Walk(layout.Nodes, func(p string, node domain.Node) error {
		if p == path {
			found = node
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	return found, nil
}

// dispatch resolves against the session document; before the first snapshot there
// is nothing to resolve against, so nothing is sent.
func (uc *DispatchUseCase) dispatch(ctx context.Context, template []byte) (domain.DashboardTx, error) {
	doc, synced := uc.session.Document()
	if !synced {
		return domain.DashboardTx{}, &domain.ProtocolOrderingError{Reason: "no data snapshot received yet"}
	}
	resolved, err := domain.ResolveTemplate(template, doc)
	if err != nil {
		slog.Warn("dispatch template unresolved", slog.String("session", uc.session.name), slog.Any("error", err))
		return domain.DashboardTx{}, err
	}
	tx := domain.DashboardTx{Template: resolved}
	if uc.sender == nil {
		return tx, nil
	}
	if err := uc.sender.Send(ctx, tx); err != nil {
		slog.Error("dispatch send failed", slog.String("session", uc.session.name), slog.Any("error", err))
		return tx, fmt.Errorf("send action: %w", err)
	}
	slog.Debug("dispatch sent", slog.String("session", uc.session.name))
	return tx, nil
}
