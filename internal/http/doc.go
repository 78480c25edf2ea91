// Package http exposes schedule entries and their conflicts over JSON.
//
// The router serves:
//   - POST /schedules, PUT /schedules/{id}: save an entry and run conflict
//     detection. Response: {"entry": entryDTO, "conflicts": [conflictDTO]}.
//   - GET /schedules, GET /schedules/{id}: entry lookups. The list accepts
//     subject_id, facility_id, responsible_officer_id, starts_after,
//     ends_before (RFC 3339) and include_cancelled query parameters.
//   - GET /schedules/{id}/conflicts: stored conflicts naming the entry.
//   - GET /conflicts-unresolved: conflicts not yet resolved, most severe first.
//   - GET /conflicts/{id}: one conflict.
//   - POST /conflicts/{id}/resolve with optional {"notes"},
//     POST /conflicts/{id}/acknowledge and POST /conflicts/{id}/ignore: status
//     changes. These require the X-User-ID header and answer 401 without it.
//   - POST /conflicts-check: {"subject_id","facility_id","start_time",
//     "end_time","exclude_entry_id"} in, {"available","conflicts"} out. Nothing
//     is stored.
//   - GET /healthz: storage reachability.
//
// Service errors map to 404 (not found), 409 (already exists) and 422
// (validation, with per field messages). Malformed bodies answer 400.
package http
