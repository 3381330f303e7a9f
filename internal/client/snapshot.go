package client

import (
	"bytes"
	"encoding/json"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/tracker"

	"github.com/pkg/errors"
)

// BuildSnapshot assembles the synced fields from local state.
func BuildSnapshot(state *tracker.State) domain.SyncPayload {
	return domain.SyncPayload{
		DoneIDs:            state.DoneIDs(),
		ClassementMoi:      state.Ranking(domain.UserMoi),
		ClassementMarianne: state.Ranking(domain.UserMarianne),
		ValidatedMoi:       state.Validated(domain.UserMoi),
		ValidatedMarianne:  state.Validated(domain.UserMarianne),
		Notes:              state.Notes(),
	}.Normalize()
}

// ApplySnapshot overwrites every synced field of local state. Fields missing
// from payload are reset to their zero value.
func ApplySnapshot(state *tracker.State, payload domain.SyncPayload) error {
	payload = payload.Normalize()

	if err := state.WriteDoneIDs(payload.DoneIDs); err != nil {
		return err
	}
	if err := state.WriteRanking(domain.UserMoi, payload.ClassementMoi); err != nil {
		return err
	}
	if err := state.WriteRanking(domain.UserMarianne, payload.ClassementMarianne); err != nil {
		return err
	}
	if err := state.WriteValidated(domain.UserMoi, payload.ValidatedMoi); err != nil {
		return err
	}
	if err := state.WriteValidated(domain.UserMarianne, payload.ValidatedMarianne); err != nil {
		return err
	}
	return state.WriteNotes(payload.Notes)
}

// DecodeSnapshot parses a fetched document. Anything but a JSON object with
// well typed fields is rejected.
func DecodeSnapshot(raw json.RawMessage) (domain.SyncPayload, error) {
	var payload domain.SyncPayload

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return payload, errors.Wrap(domain.ErrTransportFailure, "fetched document is not an object")
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, errors.Wrap(domain.ErrTransportFailure, err.Error())
	}

	return payload.Normalize(), nil
}
