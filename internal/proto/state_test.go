package proto

import "testing"

func TestNextStateFromID(t *testing.T) {
	cases := []struct {
		id   int32
		want ClientState
		ok   bool
	}{
		{1, StateStatus, true},
		{2, StateLogin, true},
		{0, 0, false},
		{3, 0, false},
	}

	for _, c := range cases {
		got, ok := NextStateFromID(c.id)
		if ok != c.ok {
			t.Errorf("NextStateFromID(%d) ok = %v, want %v", c.id, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("NextStateFromID(%d) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestClientStateToID(t *testing.T) {
	cases := []struct {
		s    ClientState
		id   int32
		ok   bool
	}{
		{StateHandshake, 0, true},
		{StateStatus, 1, true},
		{StateLogin, 2, true},
		{StatePlay, 0, false},
	}

	for _, c := range cases {
		id, ok := c.s.ToID()
		if ok != c.ok {
			t.Errorf("%v.ToID() ok = %v, want %v", c.s, ok, c.ok)
			continue
		}
		if ok && id != c.id {
			t.Errorf("%v.ToID() = %d, want %d", c.s, id, c.id)
		}
	}
}

func TestClientStateString(t *testing.T) {
	cases := map[ClientState]string{
		StateHandshake: "handshake",
		StateStatus:    "status",
		StateLogin:     "login",
		StatePlay:      "play",
		ClientState(99): "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(s), got, want)
		}
	}
}
