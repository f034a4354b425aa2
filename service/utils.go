package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody is the number of bytes of an error response kept in ErrHTTPStatus
const maxErrorBody = 512

// GetBody executes req with client and returns the body of the response.
// A status other than 200 returns an ErrHTTPStatus.
// The request is not retried.
func GetBody(client *http.Client, req *http.Request) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, ErrHTTPStatus{URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Body: string(body)}
	}
	return io.ReadAll(resp.Body)
}

// GetJSON executes req with client and decodes the json response into v
func GetJSON(client *http.Client, req *http.Request, v interface{}) error {
	body, err := GetBody(client, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GetJSON.Unmarshal (%s): %w", req.URL.Redacted(), err)
	}
	return nil
}

// Retriable calls f until it succeeds, at most nbTries times,
// waiting backoff, 2*backoff, 4*backoff... between the calls.
// It returns the last error of f or ctx.Err() if ctx is done while waiting.
func Retriable(ctx context.Context, f func() error, backoff time.Duration, nbTries int) error {
	return retry(ctx, f, func(error) bool { return true }, backoff, nbTries)
}

// RetriableTemporary is Retriable, but stops at the first error that is not Temporary
func RetriableTemporary(ctx context.Context, f func() error, backoff time.Duration, nbTries int) error {
	return retry(ctx, f, Temporary, backoff, nbTries)
}

func retry(ctx context.Context, f func() error, retriable func(error) bool, backoff time.Duration, nbTries int) error {
	var err error
	for i := 0; i < nbTries; i++ {
		if err = f(); err == nil || !retriable(err) {
			return err
		}
		if i == nbTries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff << i):
		}
	}
	return err
}
