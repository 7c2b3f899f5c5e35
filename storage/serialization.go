// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/pagewise/core"
)

// The index artifact and citations are a compatibility-relevant wire
// format consumed by other tooling, so everything persists as JSON.

// MarshalIndex serializes an Index to bytes.
func MarshalIndex(index *core.Index) ([]byte, error) {
	data, err := json.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalIndex deserializes an Index from bytes.
func UnmarshalIndex(data []byte) (*core.Index, error) {
	var index core.Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &index, nil
}

// MarshalStatus serializes an IndexStatus to bytes.
func MarshalStatus(status *core.IndexStatus) ([]byte, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalStatus deserializes an IndexStatus from bytes.
func UnmarshalStatus(data []byte) (*core.IndexStatus, error) {
	var status core.IndexStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &status, nil
}

// MarshalThread serializes a Thread to bytes.
func MarshalThread(thread *core.Thread) ([]byte, error) {
	data, err := json.Marshal(thread)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalThread deserializes a Thread from bytes.
func UnmarshalThread(data []byte) (*core.Thread, error) {
	var thread core.Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &thread, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(msg *core.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	var msg core.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &msg, nil
}
