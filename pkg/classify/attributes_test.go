// Copyright 2026 Transforma Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transforma-labs/transforma/pkg/matrix"
)

func extractionMatrix() *matrix.DecisionMatrix {
	return &matrix.DecisionMatrix{
		Version: "1.0",
		Attributes: []matrix.Attribute{
			{Name: "frequency", Type: matrix.AttrCategorical, PossibleValues: []string{"daily", "weekly", "unknown"}},
			{Name: "volume", Type: matrix.AttrNumeric},
			{Name: "regulated", Type: matrix.AttrBoolean},
		},
	}
}

func TestExtractAttributesValidResponse(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{responses: []string{
		`{"frequency": "daily", "volume": 300, "regulated": "false"}`,
	}}

	attrs := svc.ExtractAttributes(context.Background(), provider, testSession("desc"), extractionMatrix())
	assert.Equal(t, map[string]string{
		"frequency": "daily",
		"volume":    "300",
		"regulated": "false",
	}, attrs)
}

func TestExtractAttributesRejectsOutOfVocabulary(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{responses: []string{
		`{"frequency": "constantly", "volume": "lots", "regulated": "maybe"}`,
	}}

	attrs := svc.ExtractAttributes(context.Background(), provider, testSession("desc"), extractionMatrix())
	assert.Equal(t, UnknownValue, attrs["frequency"], "out-of-vocabulary categorical value stays unknown")
	assert.Equal(t, UnknownValue, attrs["volume"], "non-numeric value stays unknown")
	assert.Equal(t, UnknownValue, attrs["regulated"], "non-boolean value stays unknown")
}

func TestExtractAttributesNeverFails(t *testing.T) {
	m := extractionMatrix()
	all := map[string]string{"frequency": UnknownValue, "volume": UnknownValue, "regulated": UnknownValue}

	t.Run("llm failure", func(t *testing.T) {
		svc := newTestService(t)
		provider := &fakeProvider{err: errors.New("connection refused")}
		assert.Equal(t, all, svc.ExtractAttributes(context.Background(), provider, testSession("desc"), m))
	})

	t.Run("non-json response", func(t *testing.T) {
		svc := newTestService(t)
		provider := &fakeProvider{responses: []string{"It runs daily."}}
		assert.Equal(t, all, svc.ExtractAttributes(context.Background(), provider, testSession("desc"), m))
	})

	t.Run("missing attributes filled", func(t *testing.T) {
		svc := newTestService(t)
		provider := &fakeProvider{responses: []string{`{"frequency": "weekly"}`}}
		attrs := svc.ExtractAttributes(context.Background(), provider, testSession("desc"), m)
		assert.Equal(t, "weekly", attrs["frequency"])
		assert.Equal(t, UnknownValue, attrs["volume"])
		assert.Equal(t, UnknownValue, attrs["regulated"])
	})
}

func TestExtractAttributesCaseInsensitiveCategorical(t *testing.T) {
	svc := newTestService(t)
	provider := &fakeProvider{responses: []string{`{"frequency": "Daily"}`}}

	attrs := svc.ExtractAttributes(context.Background(), provider, testSession("desc"), extractionMatrix())
	assert.Equal(t, "daily", attrs["frequency"], "value normalizes to the declared casing")
}

func TestDescribeAttributes(t *testing.T) {
	block := describeAttributes(extractionMatrix())
	require.Contains(t, block, "frequency (one of: daily, weekly, unknown)")
	require.Contains(t, block, "volume (a number)")
	require.Contains(t, block, "regulated (true or false)")
}
