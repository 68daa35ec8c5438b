/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

func TestMessageLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected MessageLogLevel
	}{
		{"nil error", nil, MessageLogDebug},
		{"context canceled", fmt.Errorf("read: %w", context.Canceled), MessageLogDebug},
		{"invalid argument", pkgerrors.InvalidArgument("schema"), MessageLogInfo},
		{"aborted", pkgerrors.Aborted("version ahead"), MessageLogInfo},
		{"unauthenticated", pkgerrors.Unauthenticated("no user"), MessageLogWarn},
		{"permission denied", fmt.Errorf("submit: %w", pkgerrors.PermissionDenied("denied")), MessageLogWarn},
		{"resource exhausted", pkgerrors.ResourceExhausted("slow down"), MessageLogWarn},
		{"internal", pkgerrors.Internal("malformed"), MessageLogError},
		{"plain error", errors.New("boom"), MessageLogError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, toMessageLogLevel(tt.err))
		})
	}
}

func TestMessageLogLevelString(t *testing.T) {
	assert.Equal(t, "debug", MessageLogDebug.String())
	assert.Equal(t, "info", MessageLogInfo.String())
	assert.Equal(t, "warn", MessageLogWarn.String())
	assert.Equal(t, "error", MessageLogError.String())
	assert.Equal(t, "warn", MessageLogLevel(42).String())
}

func TestLoggerSettings(t *testing.T) {
	assert.Error(t, SetLogLevel("loud"))
	assert.Error(t, SetLogFormat("xml"))
	assert.NoError(t, SetLogFormat("console"))

	ctx := With(context.Background(), New("test", NewField("conn", "c1")))
	assert.NotNil(t, From(ctx))
	assert.Equal(t, DefaultLogger(), From(context.Background()))
}
