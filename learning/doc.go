// Package learning mines closed sales conversations for reusable knowledge:
// objection handling exchanges, informative question/answer pairs, and the
// closing phrases of converted conversations.
//
// Extraction is lexicon driven and deterministic. Each candidate is embedded,
// checked against the existing knowledge of its scope (a strict similarity
// threshold suppresses near-duplicates), and stored with a conversion weight
// and outcome correlation derived from how the conversation ended. Chunks
// from converted conversations carry triple weight, so retrieval naturally
// favors what has actually worked.
package learning
