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

package middleware

import (
	"context"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
	"github.com/yorkie-team/h5p-shared-state/pkg/logic"
	"github.com/yorkie-team/h5p-shared-state/server/backend"
	"github.com/yorkie-team/h5p-shared-state/server/validators"
)

var (
	// ErrOpSchemaViolation is returned when an operation does not match the
	// operation schema of the library.
	ErrOpSchemaViolation = errors.InvalidArgument("operation schema violation").WithCode("ErrOpSchemaViolation")

	// ErrOpLogicViolation is returned when an operation fails the operation
	// logic checks of the library.
	ErrOpLogicViolation = errors.InvalidArgument("operation logic violation").WithCode("ErrOpLogicViolation")

	// ErrSnapshotSchemaViolation is returned when the document after the
	// operation does not match the snapshot schema of the library.
	ErrSnapshotSchemaViolation = errors.InvalidArgument(
		"snapshot schema violation",
	).WithCode("ErrSnapshotSchemaViolation")

	// ErrSnapshotLogicViolation is returned when the document after the
	// operation fails the snapshot logic checks of the library.
	ErrSnapshotLogicViolation = errors.InvalidArgument(
		"snapshot logic violation",
	).WithCode("ErrSnapshotLogicViolation")

	// ErrPresenceSchemaViolation is returned when a presence does not match the
	// presence schema of the library.
	ErrPresenceSchemaViolation = errors.InvalidArgument(
		"presence schema violation",
	).WithCode("ErrPresenceSchemaViolation")

	// ErrPresenceLogicViolation is returned when a presence fails the presence
	// logic checks of the library.
	ErrPresenceLogicViolation = errors.InvalidArgument(
		"presence logic violation",
	).WithCode("ErrPresenceLogicViolation")
)

// Default builds the pipeline of the shared-state server.
func Default(host *backend.Host, repo *validators.Repository, checker *logic.Checker) *Pipeline {
	return NewPipeline().
		Use(Connect, InjectUser(host.RequestToUser)).
		Use(Fetch, InjectPermission(host)).
		Use(Submit, InjectPermission(host), ValidateOpSchema(repo)).
		Use(Apply, CheckOpLogic(repo, checker)).
		Use(Commit, ValidateSnapshotSchema(repo), CheckSnapshotLogic(repo, checker)).
		Use(PresenceStage,
			InjectPermission(host),
			ValidatePresenceSchema(repo),
			CheckPresenceLogic(repo, checker),
		)
}

// ValidateOpSchema validates the operation against the operation schema of
// the library. The validated value holds the op, create and del keys the
// operation carries.
func ValidateOpSchema(repo *validators.Repository) Middleware {
	return func(ctx context.Context, req *Request) error {
		lib, ok := req.Agent.Library()
		if req.Agent.FromServer || !ok || req.Op == nil || !req.Agent.LibraryMetadata.Artifacts().OpSchema {
			return nil
		}

		input := map[string]any{}
		if req.Op.Op != nil {
			input["op"] = req.Op.Op
		}
		if req.Op.Create != nil {
			input["create"] = req.Op.Create
		}
		if req.Op.Del {
			input["del"] = true
		}

		schema, err := repo.OperationSchema(ctx, lib)
		if err != nil {
			return err
		}
		return validateSchema(schema, input, ErrOpSchemaViolation)
	}
}

// CheckOpLogic evaluates the operation logic checks of the library.
func CheckOpLogic(repo *validators.Repository, checker *logic.Checker) Middleware {
	return func(ctx context.Context, req *Request) error {
		lib, ok := req.Agent.Library()
		if req.Agent.FromServer || !ok || req.Op == nil || !req.Agent.LibraryMetadata.Artifacts().OpLogicChecks {
			return nil
		}

		var snapshot any
		if req.Snapshot != nil {
			snapshot = req.Snapshot.Data
		}

		checks, err := repo.OperationLogicChecks(ctx, lib)
		if err != nil {
			return err
		}
		return checkLogic(checker, checks, map[string]any{
			"op":       req.Op.Op,
			"create":   req.Op.Create,
			"params":   req.Agent.Params,
			"snapshot": snapshot,
			"context":  req.Agent.userContext(),
		}, ErrOpLogicViolation)
	}
}

// ValidateSnapshotSchema validates the document after the operation against
// the snapshot schema of the library. Deletions are not validated.
func ValidateSnapshotSchema(repo *validators.Repository) Middleware {
	return func(ctx context.Context, req *Request) error {
		lib, ok := req.Agent.Library()
		if req.Agent.FromServer || !ok || req.NewSnapshot == nil || !req.NewSnapshot.Exists() ||
			!req.Agent.LibraryMetadata.Artifacts().SnapshotSchema {
			return nil
		}

		schema, err := repo.SnapshotSchema(ctx, lib)
		if err != nil {
			return err
		}
		return validateSchema(schema, req.NewSnapshot.Data, ErrSnapshotSchemaViolation)
	}
}

// CheckSnapshotLogic evaluates the snapshot logic checks of the library
// against the document after the operation. Deletions are not checked.
func CheckSnapshotLogic(repo *validators.Repository, checker *logic.Checker) Middleware {
	return func(ctx context.Context, req *Request) error {
		lib, ok := req.Agent.Library()
		if req.Agent.FromServer || !ok || req.NewSnapshot == nil || !req.NewSnapshot.Exists() ||
			!req.Agent.LibraryMetadata.Artifacts().SnapshotLogicChecks {
			return nil
		}

		checks, err := repo.SnapshotLogicChecks(ctx, lib)
		if err != nil {
			return err
		}
		return checkLogic(checker, checks, map[string]any{
			"snapshot": req.NewSnapshot.Data,
			"params":   req.Agent.Params,
			"context":  req.Agent.userContext(),
		}, ErrSnapshotLogicViolation)
	}
}

// ValidatePresenceSchema validates the presence value against the presence
// schema of the library. Cleared presences are not validated.
func ValidatePresenceSchema(repo *validators.Repository) Middleware {
	return func(ctx context.Context, req *Request) error {
		lib, ok := req.Agent.Library()
		if req.Agent.FromServer || !ok || req.Presence == nil || req.Presence.Value == nil ||
			!req.Agent.LibraryMetadata.Artifacts().PresenceSchema {
			return nil
		}

		schema, err := repo.PresenceSchema(ctx, lib)
		if err != nil {
			return err
		}
		return validateSchema(schema, req.Presence.Value, ErrPresenceSchemaViolation)
	}
}

// CheckPresenceLogic evaluates the presence logic checks of the library.
// Cleared presences are not checked.
func CheckPresenceLogic(repo *validators.Repository, checker *logic.Checker) Middleware {
	return func(ctx context.Context, req *Request) error {
		lib, ok := req.Agent.Library()
		if req.Agent.FromServer || !ok || req.Presence == nil || req.Presence.Value == nil ||
			!req.Agent.LibraryMetadata.Artifacts().PresenceLogicChecks {
			return nil
		}

		checks, err := repo.PresenceLogicChecks(ctx, lib)
		if err != nil {
			return err
		}
		return checkLogic(checker, checks, map[string]any{
			"presence": req.Presence.Value,
			"params":   req.Agent.Params,
			"context":  req.Agent.userContext(),
		}, ErrPresenceLogicViolation)
	}
}

// validateSchema validates the value. A missing schema passes.
func validateSchema(schema *jsonschema.Schema, value any, violation error) error {
	if schema == nil {
		return nil
	}

	if err := validators.Validate(schema, value); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), violation)
	}
	return nil
}

// checkLogic evaluates the checks against the context. Missing checks pass.
// The returned violation names the first failing check.
func checkLogic(checker *logic.Checker, checks any, context map[string]any, violation error) error {
	if checks == nil {
		return nil
	}

	expr, err := checker.Compile(checks)
	if err != nil {
		return err
	}

	doc, err := validators.Normalize(context)
	if err != nil {
		return err
	}
	if expr.Evaluate(doc) {
		return nil
	}

	for _, result := range expr.Results(doc) {
		if !result.Passed {
			return fmt.Errorf("%s %s: %w", result.Path, result.Operator, violation)
		}
	}
	return violation
}
