/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignVerifyToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok, err := SignToken("s3cret", "alice", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	sub, err := VerifyToken("s3cret", tok, now)
	if err != nil || sub != "alice" {
		t.Fatalf("VerifyToken = %q, %v", sub, err)
	}
	if _, err := VerifyToken("other", tok, now); !errors.Is(err, ErrBadToken) {
		t.Fatalf("wrong secret: expected ErrBadToken, got %v", err)
	}
	if _, err := VerifyToken("s3cret", tok, now.Add(2*time.Hour)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyToken_Malformed(t *testing.T) {
	tok, _ := SignToken("k", "bob", time.Now().Add(time.Minute))
	parts := strings.Split(tok, ".")
	cases := []string{"", "abc", "a.b.c", "!!!.sig", parts[0] + ".!!!", parts[0] + "x." + parts[1]}
	for _, c := range cases {
		if _, err := VerifyToken("k", c, time.Now()); !errors.Is(err, ErrBadToken) {
			t.Fatalf("token %q: expected ErrBadToken, got %v", c, err)
		}
	}
}

func TestVerifyToken_EmptySubjectDefaultsToDev(t *testing.T) {
	tok, _ := SignToken("k", "", time.Now().Add(time.Minute))
	sub, err := VerifyToken("k", tok, time.Now())
	if err != nil || sub != "dev" {
		t.Fatalf("expected dev subject, got %q %v", sub, err)
	}
}
