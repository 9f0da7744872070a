package mcpserver

// LedgerFormatContract describes the events.jsonl record format that agents
// reading or auditing the ledger should expect.
const LedgerFormatContract = `# Ledger Event Format Contract

The ledger is an append-only log at ` + "`ledger/events.jsonl`" + ` inside the ledger
repository. Each line is one JSON object terminated by a newline. Lines are
never edited or removed; corrections are new lines.

## Record

` + "```" + `json
{"ts":"2025-03-01T12:00:00.000000Z","agent":"alephOne","event":"task.progress","task":"T-9","text":"Hook triage completed for issue #9. ...","artifact":"https://github.com/clawDANA/dana-ledger/issues/9"}
` + "```" + `

| Field      | Type   | Notes                                                          |
|------------|--------|----------------------------------------------------------------|
| ts         | string | UTC, microsecond precision, literal Z suffix                   |
| agent      | string | Agent that wrote the line                                      |
| event      | string | ` + "`task.progress`" + ` or ` + "`task.blocked`" + `                         |
| task       | string | Task id such as ` + "`T-9`" + ` or ` + "`UNKNOWN`" + `; progress events only         |
| reason     | string | Why the agent could not act; blocked events only               |
| text       | string | Human-readable summary                                         |
| artifact   | string | Issue URL                                                      |

## Rules

1. **` + "`event`" + ` decides the shape.** ` + "`task.progress`" + ` carries ` + "`task`" + ` and no ` + "`reason`" + `.
   ` + "`task.blocked`" + ` carries ` + "`reason`" + ` and no ` + "`task`" + `.
2. **A blocked event means the agent was not a participant.** No task was claimed.
3. **Task ids come from the issue title.** The first ` + "`T-<digits>`" + ` token wins;
   titles without one are recorded as ` + "`UNKNOWN`" + `.
4. **Classification is label driven.** ` + "`priority:`" + `, ` + "`area:`" + ` and ` + "`kind:`" + ` labels are
   reported verbatim in the progress text; missing namespaces default to
   ` + "`priority:normal`" + `, ` + "`area:unknown`" + ` and ` + "`kind:unknown`" + `.
5. **Do not write this file directly.** Use the ` + "`handle_hook`" + ` tool so lines are
   stamped, validated and published.
`
