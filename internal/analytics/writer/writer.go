package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/fincore/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/fincore/pkg/bigquery"
)

// Config names the destination tables and the insert retry policy.
type Config struct {
	RiskDecisionsTable  string
	LedgerPostingsTable string
	RetryPolicy         RetryPolicy
}

// RetryPolicy bounds retries of transient BigQuery failures. Zero values
// fall back to 3 attempts, 250ms initial and 2s maximum backoff.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 250 * time.Millisecond
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = max(2*time.Second, p.InitialBackoff)
	}
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.InitialBackoff)
	b = retry.WithCappedDuration(p.MaximumBackoff, b)
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams analytics rows synchronously. The worker acks an
// event only after its rows land, so nothing is buffered here.
type BigQueryWriter struct {
	client   tableInserter
	risk     string
	postings string
	policy   RetryPolicy
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	w := &BigQueryWriter{
		client:   client,
		risk:     strings.TrimSpace(cfg.RiskDecisionsTable),
		postings: strings.TrimSpace(cfg.LedgerPostingsTable),
		policy:   cfg.RetryPolicy.withDefaults(),
	}
	if w.risk == "" || w.postings == "" {
		return nil, errors.New("risk decisions and ledger postings tables are required")
	}
	return w, nil
}

func (w *BigQueryWriter) InsertRiskDecisions(ctx context.Context, rows []types.RiskDecisionRow) error {
	return w.insert(ctx, w.risk, savers(rows))
}

func (w *BigQueryWriter) InsertLedgerPostings(ctx context.Context, rows []types.LedgerPostingRow) error {
	return w.insert(ctx, w.postings, savers(rows))
}

// savers hands BigQuery pointers so each row's Save supplies its insert id.
func savers[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func (w *BigQueryWriter) insert(ctx context.Context, table string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}
	err := retry.Do(ctx, w.policy.backoff(), func(ctx context.Context) error {
		err := w.client.InsertRows(ctx, table, rows)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(rows), table, err)
	}
	return nil
}

// transient reports whether every failure inside err is worth retrying. A
// batch with one permanently bad row would fail again the same way.
func transient(err error) bool {
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return allTransient(multi)
	}
	var put cbigquery.PutMultiError
	if errors.As(err, &put) {
		inner := make([]error, 0, len(put))
		for _, row := range put {
			inner = append(inner, row.Errors)
		}
		return allTransient(inner)
	}
	var row *cbigquery.RowInsertionError
	if errors.As(err, &row) && row != nil {
		return allTransient(row.Errors)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal,
			codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

func allTransient[E ~[]error](errs E) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		if err == nil || !transient(err) {
			return false
		}
	}
	return true
}

// EncodeJSON prepares a value for a BigQuery JSON column. Empty input maps
// to NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return v, nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
