package definitions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xeviknal/hawkular-alerts/types"
)

func drain(t *testing.T, keys <-chan types.TriggerKey, errs <-chan error) ([]types.TriggerKey, error) {
	t.Helper()

	var got []types.TriggerKey
	for k := range keys {
		got = append(got, k)
	}

	select {
	case err := <-errs:
		return got, err
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error channel to close")
		return nil, nil
	}
}

func TestStatic_StreamsFixedKeys(t *testing.T) {
	want := []types.TriggerKey{
		{TenantID: "t1", TriggerID: "x"},
		{TenantID: "t1", TriggerID: "y"},
	}
	s := NewStatic(want)

	keys, errs := s.ListTriggers(context.Background())
	got, err := drain(t, keys, errs)

	require.NoError(t, err)
	require.ElementsMatch(t, want, got)
}

func TestStatic_Update(t *testing.T) {
	s := NewStatic(nil)
	s.Update([]types.TriggerKey{{TenantID: "t2", TriggerID: "z"}})

	keys, errs := s.ListTriggers(context.Background())
	got, err := drain(t, keys, errs)

	require.NoError(t, err)
	require.Equal(t, []types.TriggerKey{{TenantID: "t2", TriggerID: "z"}}, got)
}

func TestFailing_AlwaysFails(t *testing.T) {
	s := NewFailing(nil)

	keys, errs := s.ListTriggers(context.Background())
	got, err := drain(t, keys, errs)

	require.ErrorIs(t, err, ErrDefault)
	require.Empty(t, got)
}
