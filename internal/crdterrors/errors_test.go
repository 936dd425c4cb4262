/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
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

package crdterrors

import (
	"errors"
	"strings"
	"testing"
)

func TestUnknownType(t *testing.T) {
	err := UnknownType("pn-counter-xx")

	if err.Category != CategoryUnknownType {
		t.Errorf("expected category %s, got %s", CategoryUnknownType, err.Category)
	}
	if !strings.Contains(err.Error(), "pn-counter-xx") {
		t.Errorf("expected error to mention the tag, got: %s", err.Error())
	}
}

func TestDownstreamFailedWithDetail(t *testing.T) {
	err := DownstreamFailed("element already removed")

	if err.Detail != "element already removed" {
		t.Errorf("expected detail to be set, got: %q", err.Detail)
	}
	if !strings.Contains(err.Error(), "element already removed") {
		t.Errorf("expected error string to contain detail, got: %s", err.Error())
	}
}

func TestIOFailedUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := IOFailed("wal-append", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
}

func TestCausalTimeoutCategory(t *testing.T) {
	err := CausalTimeout()
	if err.Category != CategoryCausalTimeout {
		t.Errorf("expected category %s, got %s", CategoryCausalTimeout, err.Category)
	}
}

func TestUserMessageIncludesHint(t *testing.T) {
	err := UnknownType("foo").WithHint("check the type registry")
	msg := err.UserMessage()
	if !strings.Contains(msg, "HINT:") || !strings.Contains(msg, "check the type registry") {
		t.Errorf("expected hint in user message, got: %s", msg)
	}
}
