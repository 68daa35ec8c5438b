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
	"time"

	pkgerrors "github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

// MessageLogLevel is the severity a handled message is logged with.
type MessageLogLevel int

// Below are the severities of handled messages.
const (
	MessageLogDebug MessageLogLevel = iota
	MessageLogInfo
	MessageLogWarn
	MessageLogError
)

// String returns the name of the level.
func (l MessageLogLevel) String() string {
	switch l {
	case MessageLogDebug:
		return "debug"
	case MessageLogInfo:
		return "info"
	case MessageLogError:
		return "error"
	}
	return "warn"
}

// toMessageLogLevel classifies the outcome of a message. Rejections caused by
// the client are expected and logged quietly, server defects loudly.
func toMessageLogLevel(err error) MessageLogLevel {
	if err == nil || errors.Is(err, context.Canceled) {
		return MessageLogDebug
	}

	switch pkgerrors.StatusOf(err) {
	case pkgerrors.ErrCodeInvalidArgument, pkgerrors.ErrCodeNotFound,
		pkgerrors.ErrCodeAlreadyExists, pkgerrors.ErrCodeAborted:
		return MessageLogInfo
	case pkgerrors.ErrCodeUnauthenticated, pkgerrors.ErrCodePermissionDenied,
		pkgerrors.ErrCodeFailedPrecondition, pkgerrors.ErrCodeResourceExhausted:
		return MessageLogWarn
	case pkgerrors.ErrCodeInternal:
		return MessageLogError
	}

	return MessageLogError
}

// LogMessage logs the outcome of a message handled for a connection.
func LogMessage(logger Logger, action, contentID string, duration time.Duration, err error) {
	const template = "MSG : %q %q %s => %v"

	switch toMessageLogLevel(err) {
	case MessageLogDebug:
		if err == nil {
			logger.Debugf("MSG : %q %q %s", action, contentID, duration)
			return
		}
		logger.Debugf(template, action, contentID, duration, err)
	case MessageLogInfo:
		logger.Infof(template, action, contentID, duration, err)
	case MessageLogWarn:
		logger.Warnf(template, action, contentID, duration, err)
	default:
		logger.Errorf(template, action, contentID, duration, err)
	}
}
