// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/hoptrace/internal/helper"
)

const jobURL = "https://jobs.example.com/hoptrace/job.yaml"

func newTestHttpLoader(t *testing.T, cfg HttpLoaderConfig, interval time.Duration, jobs chan<- Job) *HttpLoader {
	t.Helper()
	hl := NewHttpLoader(&Config{Loader: LoaderConfig{Type: "http", Interval: interval, Http: cfg}}, jobs)
	httpmock.ActivateNonDefault(hl.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return hl
}

func TestHttpLoader_getJob(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		responder httpmock.Responder
		want      Job
		wantErr   bool
		permanent bool
	}{
		{
			name:      "valid job",
			responder: httpmock.NewStringResponder(http.StatusOK, validJob),
			want:      wantValidJob(),
		},
		{
			name:  "bearer token is sent",
			token: "s3cr3t",
			responder: func(req *http.Request) (*http.Response, error) {
				if req.Header.Get("Authorization") != "Bearer s3cr3t" {
					return httpmock.NewStringResponse(http.StatusUnauthorized, ""), nil
				}
				return httpmock.NewStringResponse(http.StatusOK, validJob), nil
			},
			want: wantValidJob(),
		},
		{
			name:      "server error",
			responder: httpmock.NewStringResponder(http.StatusInternalServerError, ""),
			wantErr:   true,
		},
		{
			name:      "invalid job is not retried",
			responder: httpmock.NewStringResponder(http.StatusOK, "interval: 1s"),
			wantErr:   true,
			permanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hl := newTestHttpLoader(t, HttpLoaderConfig{Url: jobURL, Token: tt.token}, 0, make(chan Job, 1))
			httpmock.RegisterResponder(http.MethodGet, jobURL, tt.responder)

			job, err := hl.getJob(t.Context())
			if tt.wantErr {
				require.Error(t, err)
				calls := 0
				eff := helper.Retry(func(ctx context.Context) error {
					calls++
					_, err := hl.getJob(ctx)
					return err
				}, helper.RetryConfig{Count: 1, Delay: time.Millisecond})
				require.Error(t, eff(t.Context()))
				if tt.permanent {
					assert.Equal(t, 1, calls)
				} else {
					assert.Equal(t, 2, calls)
				}
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(job), "got job %+v", job)
		})
	}
}

func TestHttpLoader_Run(t *testing.T) {
	t.Run("retries until the job is fetched", func(t *testing.T) {
		jobs := make(chan Job, 1)
		hl := newTestHttpLoader(t, HttpLoaderConfig{
			Url:      jobURL,
			RetryCfg: helper.RetryConfig{Count: 3, Delay: time.Millisecond},
		}, 0, jobs)

		attempts := 0
		httpmock.RegisterResponder(http.MethodGet, jobURL, func(*http.Request) (*http.Response, error) {
			attempts++
			if attempts < 3 {
				return httpmock.NewStringResponse(http.StatusServiceUnavailable, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, validJob), nil
		})

		require.NoError(t, hl.Run(t.Context()))
		assert.Equal(t, 3, attempts)
		require.Len(t, jobs, 1)
		assert.True(t, wantValidJob().Equal(<-jobs))
	})

	t.Run("gives up after the retries", func(t *testing.T) {
		jobs := make(chan Job, 1)
		hl := newTestHttpLoader(t, HttpLoaderConfig{
			Url:      jobURL,
			RetryCfg: helper.RetryConfig{Count: 1, Delay: time.Millisecond},
		}, 0, jobs)
		httpmock.RegisterResponder(http.MethodGet, jobURL, httpmock.NewStringResponder(http.StatusNotFound, ""))

		assert.Error(t, hl.Run(t.Context()))
		assert.Equal(t, 2, httpmock.GetTotalCallCount())
		assert.Empty(t, jobs)
	})

	t.Run("periodic loading until shutdown", func(t *testing.T) {
		jobs := make(chan Job, 1)
		hl := newTestHttpLoader(t, HttpLoaderConfig{Url: jobURL}, time.Hour, jobs)
		httpmock.RegisterResponder(http.MethodGet, jobURL, httpmock.NewStringResponder(http.StatusOK, validJob))

		errc := make(chan error, 1)
		go func() { errc <- hl.Run(t.Context()) }()

		select {
		case <-jobs:
		case <-time.After(5 * time.Second):
			t.Fatal("no job received")
		}
		hl.Shutdown(t.Context())

		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("loader did not return")
		}
	})
}
