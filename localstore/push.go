package localstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// AckAccepted is the only response acknowledgement that counts as success.
// Anything else fails the whole batch.
const AckAccepted = "accepted"

// TokenFunc supplies the bearer token for push requests.
type TokenFunc func(ctx context.Context) (string, error)

// PushConfig configures the coordinator.
type PushConfig struct {
	// BaseURL of the remote sync API; the entity endpoint is BaseURL +
	// "/sync/" + entity.
	BaseURL string
	// Token supplies the device JWT. Required.
	Token TokenFunc
	// HTTP overrides the default client.
	HTTP *http.Client
	// BatchLimit caps how many oplog entries one request claims.
	BatchLimit int
}

// PushOperation is one oplog entry on the wire.
type PushOperation struct {
	Data      json.RawMessage `json:"data"`
	TableName string          `json:"tableName"`
	Action    string          `json:"action"`
	Timestamp string          `json:"timestamp"`
}

// PushRequest is the batch submitted to the entity endpoint. The whole batch
// is one unit from the server's perspective.
type PushRequest struct {
	RequestID  string          `json:"requestId"`
	Operations []PushOperation `json:"operations"`
}

// PushResponse is the server's acknowledgement.
type PushResponse struct {
	Ack string `json:"ack"`
}

// PushCoordinator batches pending oplog entries under a request id and
// submits them atomically to the remote endpoint for one entity type. It is
// driven by the external sync worker, typically off Notifier wake-ups.
type PushCoordinator struct {
	registry *Registry
	oplog    *Oplog
	cfg      PushConfig
	http     *http.Client
	logger   *slog.Logger
}

// NewPushCoordinator builds a coordinator.
func NewPushCoordinator(reg *Registry, oplog *Oplog, cfg PushConfig, logger *slog.Logger) *PushCoordinator {
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PushCoordinator{
		registry: reg,
		oplog:    oplog,
		cfg:      cfg,
		http:     httpClient,
		logger:   logger,
	}
}

// Push gathers the pending operations tagged with requestID for the given
// entity (claiming a fresh batch when the id is new) and submits them as one
// unit. With nothing to send it returns nil, which makes at-least-once
// triggering safe: a retried trigger with the same id resubmits the same
// rows, and an id whose rows were already acknowledged is a no-op.
//
// A response whose acknowledgement is not "accepted" returns ErrPushFailed
// with every entry still pending and its claim released, so the batch stays
// drainable under whatever request id the next attempt carries; there is no
// partial application.
func (p *PushCoordinator) Push(ctx context.Context, entity, requestID string) error {
	tables := p.registry.TablesForEntity(entity)
	if len(tables) == 0 {
		return fmt.Errorf("entity %q: %w", entity, ErrTableNotRegistered)
	}

	entries, err := p.oplog.PendingByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		claimed, err := p.oplog.ClaimBatch(ctx, requestID, tables, p.cfg.BatchLimit)
		if err != nil {
			return err
		}
		if claimed == 0 {
			return nil
		}
		entries, err = p.oplog.PendingByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
	}

	ops := make([]PushOperation, len(entries))
	for i, e := range entries {
		ops[i] = PushOperation{
			Data:      json.RawMessage(e.Data),
			TableName: e.TableName,
			Action:    e.Action,
			Timestamp: e.Timestamp,
		}
	}

	resp, err := p.send(ctx, entity, &PushRequest{RequestID: requestID, Operations: ops})
	if err != nil {
		p.releaseClaim(ctx, requestID)
		return err
	}
	if resp.Ack != AckAccepted {
		p.releaseClaim(ctx, requestID)
		return fmt.Errorf("%w: server answered %q for request %s (%d operations)",
			ErrPushFailed, resp.Ack, requestID, len(ops))
	}

	if err := p.oplog.MarkSynced(ctx, requestID); err != nil {
		return err
	}
	p.logger.Info("pushed oplog batch", "entity", entity, "requestId", requestID, "operations", len(ops))
	return nil
}

// releaseClaim untags a failed batch so the rows stay drainable: the next
// push, whatever request id it carries, must be able to claim them again. A
// claim only outlives Push when the process dies mid-request, in which case
// re-triggering with the same id resubmits the identical batch.
func (p *PushCoordinator) releaseClaim(ctx context.Context, requestID string) {
	if err := p.oplog.ReleaseBatch(ctx, requestID); err != nil {
		p.logger.Error("failed to release failed push batch", "requestId", requestID, "error", err)
	}
}

func (p *PushCoordinator) send(ctx context.Context, entity string, req *PushRequest) (*PushResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/sync/"+entity, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	token, err := p.cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get push token: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: server returned status %d: %s", ErrPushFailed, resp.StatusCode, string(respBody))
	}

	var pushResp PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrPushFailed, err)
	}
	return &pushResp, nil
}
