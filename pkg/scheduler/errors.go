/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scheduler

import "errors"

// The scheduler surfaces every rejection to the caller; nothing here is
// retried internally.
var (
	// ErrAlreadyRequested rejects a submit while the user has a live request.
	ErrAlreadyRequested = errors.New("user already has a live charging request")
	// ErrOutOfSpace rejects a submit while the waiting area is at capacity.
	ErrOutOfSpace = errors.New("waiting area is full")
	// ErrOutOfIDs rejects a submit once every request id is live.
	ErrOutOfIDs = errors.New("charging ids exhausted")
	// ErrIllegalUpdate rejects an update after the request reached a pile queue.
	ErrIllegalUpdate = errors.New("request cannot be updated after pile assignment")
	// ErrMappingNotExisted reports an unknown request id or username.
	ErrMappingNotExisted = errors.New("no charging request for this mapping")
	// ErrPileNotFound reports a brake or recover on an unknown pile.
	ErrPileNotFound = errors.New("no such pile")
)
