package apptrove

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/InQaaaaGit/edurise.git/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// maxBodySize ограничивает размер читаемого ответа поставщика
const maxBodySize = 4 << 20

// ErrNoCredentials возвращается, когда в конфигурации нет ни одного полного набора учетных данных.
var ErrNoCredentials = errors.New("no AppTrove credentials configured")

// ErrNoEndpoints возвращается, когда у операции нет ни одного адреса AppTrove.
var ErrNoEndpoints = errors.New("no AppTrove endpoints configured")

// Doer выполняет HTTP-запрос. *http.Client удовлетворяет этому интерфейсу.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder принимает сведения о попытках для метрик.
type Recorder interface {
	ObserveAttempt(operation, credential, outcome string, duration time.Duration)
	ObserveExhaustion(operation string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, string, string, time.Duration) {}
func (nopRecorder) ObserveExhaustion(string)                             {}

// Call описывает один логический вызов API: все адреса-кандидаты и все наборы
// учетных данных, которые можно перебрать.
type Call struct {
	Operation   string
	Method      string
	Endpoints   []string
	Credentials []CredentialBundle
	Body        any
}

// AttemptResult хранит исход одной пары (адрес, учетные данные).
// Body содержит разобранный JSON или nil, если тело не является JSON.
type AttemptResult struct {
	Endpoint        string
	CredentialLabel string
	Status          int
	Body            any
	RawText         string
	Err             string
}

// OK сообщает, завершилась ли попытка успешно (ответ получен, статус 2xx).
func (r AttemptResult) OK() bool {
	return r.Err == "" && r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// AttemptError описывает неудачную попытку.
type AttemptError struct {
	models.Attempt
	Message string
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Endpoint, e.Credential, e.Message)
}

// ExhaustedError возвращается, когда ни одна пара (адрес, учетные данные) не дала 2xx.
// LastMessage содержит сообщение последней попытки, без ранжирования по важности.
type ExhaustedError struct {
	Operation   string
	LastMessage string
	Attempts    []models.Attempt
	Failures    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d attempts failed: %s", e.Operation, len(e.Attempts), e.LastMessage)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Failures
}

// Executor последовательно перебирает матрицу попыток до первого успеха.
type Executor struct {
	client   Doer
	logger   *zap.Logger
	recorder Recorder
}

// NewExecutor создает исполнитель поверх HTTP-клиента.
// recorder может быть nil.
func NewExecutor(client Doer, logger *zap.Logger, recorder Recorder) *Executor {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		client:   client,
		logger:   logger,
		recorder: recorder,
	}
}

// Execute перебирает адреса во внешнем цикле и учетные данные во внутреннем.
// Запросы выполняются строго по очереди; после первого ответа 2xx перебор
// прекращается. Если успешных попыток нет, возвращается *ExhaustedError.
func (e *Executor) Execute(ctx context.Context, call Call) (AttemptResult, error) {
	var payload []byte
	if call.Body != nil {
		data, err := json.Marshal(call.Body)
		if err != nil {
			return AttemptResult{}, fmt.Errorf("marshal %s request body: %w", call.Operation, err)
		}
		payload = data
	}

	results := make([]AttemptResult, 0, len(call.Endpoints)*len(call.Credentials))

	// stop - причина, по которой матрица не пройдена до конца
	var stop error
	switch {
	case len(call.Credentials) == 0:
		stop = ErrNoCredentials
	case len(call.Endpoints) == 0:
		stop = ErrNoEndpoints
	default:
	matrix:
		for _, endpoint := range call.Endpoints {
			for _, cred := range call.Credentials {
				if err := ctx.Err(); err != nil {
					stop = err
					break matrix
				}

				result := e.attempt(ctx, call, endpoint, cred, payload)
				results = append(results, result)
				if result.OK() {
					break matrix
				}
			}
		}
	}

	result, err := fold(call.Operation, results, stop)
	if err != nil {
		e.recorder.ObserveExhaustion(call.Operation)
		e.logger.Warn("AppTrove attempts exhausted",
			zap.String("operation", call.Operation),
			zap.Int("attempts", len(results)),
			zap.Error(err))
	}
	return result, err
}

// fold сводит последовательность попыток к успеху или к агрегированной ошибке.
// stop - причина, прервавшая обход матрицы; она становится последним сообщением.
func fold(operation string, results []AttemptResult, stop error) (AttemptResult, error) {
	if len(results) > 0 && results[len(results)-1].OK() {
		return results[len(results)-1], nil
	}
	if len(results) == 0 && stop == nil {
		stop = ErrNoCredentials
	}

	exhausted := &ExhaustedError{
		Operation: operation,
		Attempts:  make([]models.Attempt, 0, len(results)),
	}
	for _, r := range results {
		ref := models.Attempt{Endpoint: r.Endpoint, Credential: r.CredentialLabel, Status: r.Status}
		exhausted.Attempts = append(exhausted.Attempts, ref)
		exhausted.Failures = multierr.Append(exhausted.Failures, &AttemptError{Attempt: ref, Message: r.Err})
		exhausted.LastMessage = r.Err
	}
	if stop != nil {
		exhausted.Failures = multierr.Append(exhausted.Failures, stop)
		exhausted.LastMessage = stop.Error()
	}
	return AttemptResult{}, exhausted
}

// attempt выполняет один запрос. Любая ошибка фиксируется в результате и не прерывает перебор.
func (e *Executor) attempt(ctx context.Context, call Call, endpoint string, cred CredentialBundle, payload []byte) AttemptResult {
	start := time.Now()
	result := AttemptResult{Endpoint: endpoint, CredentialLabel: cred.Label}

	defer func() {
		outcome := "success"
		if !result.OK() {
			outcome = "failure"
			e.logger.Warn("AppTrove attempt failed",
				zap.String("operation", call.Operation),
				zap.String("endpoint", endpoint),
				zap.String("credential", cred.Label),
				zap.Int("status", result.Status),
				zap.String("error", result.Err))
		}
		e.recorder.ObserveAttempt(call.Operation, cred.Label, outcome, time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, endpoint, body)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range cred.Headers {
		req.Header.Set(name, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		result.Err = fmt.Sprintf("read response body: %v", err)
		return result
	}
	result.RawText = string(data)
	result.Body = parseBody(data)

	if !result.OK() {
		result.Err = errorMessage(resp.StatusCode, result.Body)
	}
	return result
}

// parseBody разбирает тело ответа как JSON; при ошибке возвращает nil
func parseBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

// errorMessage извлекает сообщение об ошибке из известных полей ответа
func errorMessage(status int, body any) string {
	if m, ok := body.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
		switch v := m["error"].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}

	text := http.StatusText(status)
	if text == "" {
		text = "unexpected status"
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}
