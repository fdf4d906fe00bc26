// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ai is the chat layer between users and their goals.

One turn works like this: the system prompt carries the command contract
and a rendered summary of the user's goals, recent transcript messages are
replayed, and the new message goes to the Anthropic Messages API. The
reply's fenced JSON block (if any) is parsed into a models.CommandBatch
with a forgiving extractor (code fences, trailing commas, mixed content)
and executed through goalcmd. The visible prose - command block stripped -
is persisted to the transcript and returned.

Respond does a blocking turn; Stream passes text deltas through as they
arrive (for SSE) and emits a final event with command results.

API calls retry transient failures with exponential backoff and are capped
by a weighted semaphore so a burst of chats cannot trip provider rate
limits.
*/
package ai
