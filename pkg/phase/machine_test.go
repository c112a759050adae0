package phase

import "testing"

func TestCloseLobbyRequiresLeader(t *testing.T) {
	m := NewMachine(Follower)
	if _, err := m.CloseLobby(3); err != ErrWrongPhase {
		t.Fatalf("got %v, want ErrWrongPhase", err)
	}
}

func TestCloseLobbyRequiresMinimumParticipants(t *testing.T) {
	m := NewMachine(Leader)
	if _, err := m.CloseLobby(2); err != ErrNotEnoughParticipants {
		t.Fatalf("got %v, want ErrNotEnoughParticipants", err)
	}
	if m.Phase() != WaitingForParticipants {
		t.Fatalf("phase changed on rejected guard: %v", m.Phase())
	}
}

func TestCloseLobbySucceeds(t *testing.T) {
	m := NewMachine(Leader)
	outcome, err := m.CloseLobby(3)
	if err != nil {
		t.Fatalf("CloseLobby: %v", err)
	}
	if outcome != BroadcastLobbyNowClosed {
		t.Fatalf("got %v, want BroadcastLobbyNowClosed", outcome)
	}
	if m.Phase() != SendingShares {
		t.Fatalf("got phase %v, want SendingShares", m.Phase())
	}
}

func TestReceiveLobbyClosedPromptsOnEnoughPeers(t *testing.T) {
	m := NewMachine(Follower)
	outcome, err := m.ReceiveLobbyClosed(3)
	if err != nil {
		t.Fatalf("ReceiveLobbyClosed: %v", err)
	}
	if outcome != PromptUserToConfirm {
		t.Fatalf("got %v, want PromptUserToConfirm", outcome)
	}
	if m.Phase() != ConfirmingParticipants {
		t.Fatalf("got phase %v, want ConfirmingParticipants", m.Phase())
	}
}

func TestReceiveLobbyClosedAbortsBelowMinimum(t *testing.T) {
	m := NewMachine(Follower)
	outcome, err := m.ReceiveLobbyClosed(2)
	if err != nil {
		t.Fatalf("ReceiveLobbyClosed: %v", err)
	}
	if outcome != Abort {
		t.Fatalf("got %v, want Abort", outcome)
	}
}

func TestReceiveLobbyClosedRejectsLeader(t *testing.T) {
	m := NewMachine(Leader)
	if _, err := m.ReceiveLobbyClosed(3); err != ErrWrongPhase {
		t.Fatalf("got %v, want ErrWrongPhase", err)
	}
}

func TestConfirm(t *testing.T) {
	m := NewMachine(Follower)
	if _, err := m.ReceiveLobbyClosed(3); err != nil {
		t.Fatalf("ReceiveLobbyClosed: %v", err)
	}

	outcome, err := m.Confirm()
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if outcome != NoOp {
		t.Fatalf("got %v, want NoOp", outcome)
	}
	if m.Phase() != SendingShares {
		t.Fatalf("got phase %v, want SendingShares", m.Phase())
	}
}

func TestDecline(t *testing.T) {
	m := NewMachine(Follower)
	if _, err := m.ReceiveLobbyClosed(3); err != nil {
		t.Fatalf("ReceiveLobbyClosed: %v", err)
	}

	outcome, err := m.Decline()
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if outcome != Terminate {
		t.Fatalf("got %v, want Terminate", outcome)
	}
}

func TestConfirmOutsideConfirmingIsWrongPhase(t *testing.T) {
	m := NewMachine(Follower)
	if _, err := m.Confirm(); err != ErrWrongPhase {
		t.Fatalf("got %v, want ErrWrongPhase", err)
	}
}

func TestObserveResult(t *testing.T) {
	m := NewMachine(Follower)
	if _, err := m.ReceiveLobbyClosed(3); err != nil {
		t.Fatalf("ReceiveLobbyClosed: %v", err)
	}
	if _, err := m.Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	outcome, err := m.ObserveResult()
	if err != nil {
		t.Fatalf("ObserveResult: %v", err)
	}
	if outcome != Terminate {
		t.Fatalf("got %v, want Terminate", outcome)
	}
	if !m.ResultObserved() {
		t.Fatal("expected ResultObserved true")
	}
}

func TestObserveResultOutsideSendingSharesIsWrongPhase(t *testing.T) {
	m := NewMachine(Leader)
	if _, err := m.ObserveResult(); err != ErrWrongPhase {
		t.Fatalf("got %v, want ErrWrongPhase", err)
	}
}

func TestHandleDepartureDuringWaiting(t *testing.T) {
	m := NewMachine(Leader)
	if outcome := m.HandleDeparture(1); outcome != NoOp {
		t.Fatalf("got %v, want NoOp", outcome)
	}
}

func TestHandleDepartureDuringConfirmingNoPeersLeft(t *testing.T) {
	m := NewMachine(Follower)
	if _, err := m.ReceiveLobbyClosed(3); err != nil {
		t.Fatalf("ReceiveLobbyClosed: %v", err)
	}
	if outcome := m.HandleDeparture(0); outcome != Abort {
		t.Fatalf("got %v, want Abort", outcome)
	}
}

func TestHandleDepartureDuringConfirmingPeersRemain(t *testing.T) {
	m := NewMachine(Follower)
	if _, err := m.ReceiveLobbyClosed(3); err != nil {
		t.Fatalf("ReceiveLobbyClosed: %v", err)
	}
	if outcome := m.HandleDeparture(1); outcome != NoOp {
		t.Fatalf("got %v, want NoOp", outcome)
	}
}

func TestHandleDepartureDuringSendingSharesAborts(t *testing.T) {
	m := NewMachine(Leader)
	if _, err := m.CloseLobby(3); err != nil {
		t.Fatalf("CloseLobby: %v", err)
	}
	if outcome := m.HandleDeparture(1); outcome != Abort {
		t.Fatalf("got %v, want Abort", outcome)
	}
}

func TestHandleDepartureDuringSendingSharesAfterResultIsNoOp(t *testing.T) {
	m := NewMachine(Leader)
	if _, err := m.CloseLobby(3); err != nil {
		t.Fatalf("CloseLobby: %v", err)
	}
	if _, err := m.ObserveResult(); err != nil {
		t.Fatalf("ObserveResult: %v", err)
	}
	if outcome := m.HandleDeparture(0); outcome != NoOp {
		t.Fatalf("got %v, want NoOp", outcome)
	}
}
