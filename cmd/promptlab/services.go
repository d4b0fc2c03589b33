package main

import (
	"context"
	"errors"

	"github.com/matiasleandrokruk/promptlab/internal/domain/extract"
	"github.com/matiasleandrokruk/promptlab/internal/domain/knowledge"
	"github.com/matiasleandrokruk/promptlab/internal/domain/session"
	"github.com/matiasleandrokruk/promptlab/internal/infra/eventbus"
	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
	"github.com/matiasleandrokruk/promptlab/internal/infra/natsbus"
)

// Provider keys in services.providers.
const (
	providerChat  = "chat"
	providerEmbed = "embed"
)

// services are the long-lived components behind serve and mcp.
type services struct {
	providers *llm.Router
	bus       *eventbus.Bus
	sessions  *session.Manager
	analyzer  *extract.Analyzer
	index     *knowledge.Index // nil when no PDF is indexed
	closers   []func() error
}

// close releases everything in reverse order of creation.
func (s *services) close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// openServices builds the chat services. Missing chat credentials are fatal;
// a PDF that cannot be indexed or a NATS server that cannot be reached only
// disables the matching feature.
func (a *app) openServices(ctx context.Context, storeKind string) (*services, error) {
	provider, err := a.chatProvider(false)
	if err != nil {
		return nil, err
	}

	svc := &services{
		providers: llm.NewRouter(map[string]llm.LLMProvider{providerChat: provider}, providerChat),
		bus:       eventbus.New(),
	}
	svc.closers = append(svc.closers, func() error { svc.bus.Close(); return nil })

	if a.cfg.NATSURL != "" {
		client, err := natsbus.Connect(a.cfg.NATSURL, "", a.logger)
		if err != nil {
			a.logger.Warn("nats unavailable, events stay local", "error", err)
		} else {
			fwd := natsbus.NewForwarder(svc.bus, client, a.logger)
			svc.closers = append(svc.closers, func() error {
				client.Close()
				return nil
			}, func() error {
				fwd.Stop()
				return nil
			})
		}
	}

	svc.sessions = session.NewManager(provider, a.contextSource(), a.sessionConfig(svc.bus))
	svc.closers = append(svc.closers, func() error { svc.sessions.Close(); return nil })
	svc.analyzer = extract.NewAnalyzer(provider, a.cfg.ChatModel(a.cfg.LLMProvider), a.logger)

	if a.cfg.PDFPath != "" {
		if err := a.openSearch(ctx, svc, storeKind); err != nil {
			svc.close() //nolint:errcheck
			return nil, err
		}
	}
	return svc, nil
}

// openSearch indexes PDF_PATH into svc. Only a usage error is returned; any
// other failure is logged and leaves search disabled.
func (a *app) openSearch(ctx context.Context, svc *services, storeKind string) error {
	embed, err := a.embedProvider()
	if err != nil {
		a.logger.Warn("document search disabled", "error", err)
		return nil
	}
	svc.providers.Register(providerEmbed, embed)

	ix, store, closeIndex, err := a.newIndex(embed, storeKind)
	if err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			return err
		}
		a.logger.Warn("document search disabled", "error", err)
		return nil
	}
	svc.closers = append(svc.closers, closeIndex)
	if err := a.indexPDF(ctx, ix, store, a.cfg.PDFPath, true); err != nil {
		a.logger.Warn("document search disabled", "path", a.cfg.PDFPath, "error", err)
		return nil
	}
	svc.index = ix
	return nil
}
