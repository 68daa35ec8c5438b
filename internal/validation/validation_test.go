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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	t.Run("ValidateValue test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("1h30m20s", "duration"))
		assert.NoError(t, ValidateValue("0", "duration"))

		err := ValidateValue("one hour", "duration")
		require.Error(t, err)
		assert.Equal(t, "duration", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("content-12_a.b", "required,content_id"))
		err = ValidateValue("../etc/passwd", "required,content_id")
		assert.Equal(t, "content_id", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("H5P.SharedPoll", "machine_name"))
		err = ValidateValue("H5P SharedPoll", "machine_name")
		assert.Equal(t, "machine_name", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("", "base_path"))
		assert.NoError(t, ValidateValue("/h5p/", "base_path"))
		err = ValidateValue("h5p", "base_path")
		assert.Equal(t, "base_path", err.(Violation).Tag)
	})

	t.Run("ValidateStruct test", func(t *testing.T) {
		type Section struct {
			Interval string `validate:"required,duration"`
			Size     int    `validate:"gt=0"`
		}

		err := ValidateStruct(Section{Interval: "soon", Size: 0})
		structError, ok := err.(*StructError)
		require.True(t, ok)
		assert.Len(t, structError.Violations, 2)
		assert.Equal(t, "Interval", structError.Violations[0].Field)
		assert.Contains(t, err.Error(), "Interval must be a valid time duration string format")

		assert.NoError(t, ValidateStruct(Section{Interval: "5s", Size: 1}))
	})

	t.Run("custom rule test", func(t *testing.T) {
		require.NoError(t, RegisterValidation("custom", func(v FieldLevel) bool {
			return v.Field().String() == "custom"
		}))
		require.NoError(t, RegisterTranslation("custom", "{0} must be custom"))

		err := ValidateValue("custom-invalid-value", "required,custom")
		assert.Error(t, err)
		assert.NoError(t, ValidateValue("custom", "required,custom"))
	})
}
