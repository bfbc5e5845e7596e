// Copyright 2026 Auro Systems
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


// Package storage defines the persistence contracts for the knowledge base:
// chunk stores with scoped similarity search, document stores, and the
// conversation source the learning pipeline reads from.
//
// Two backends implement these contracts. The postgres subpackage targets
// PostgreSQL with the pgvector extension and is the production deployment;
// the badger subpackage is a zero-dependency embedded store for local use
// and tests. Both enforce the same scoping rule: similarity queries without
// a client scope are rejected, never widened.
package storage
