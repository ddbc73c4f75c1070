package main

import (
	"encoding/json"
	"log"
	"math/rand"
)

// DuelHandSize is the number of cards dealt to each player. The 13-rank
// deck supports up to floor(13/5) = 2 seated players.
const DuelHandSize = 5

// CardDuelEngine is the deterministic turn-based elimination engine.
// Players alternate playing cards; a play that does not strictly beat the
// previous card eliminates the actor. Last player standing wins.
type CardDuelEngine struct {
	bus  Bus
	host EngineHost
}

// NewCardDuelEngine creates the duel engine
func NewCardDuelEngine(bus Bus, host EngineHost) *CardDuelEngine {
	return &CardDuelEngine{bus: bus, host: host}
}

// Start shuffles a fresh deck and deals every seat a hand
func (d *CardDuelEngine) Start(r *Room) {
	deck := make([]Card, len(DeckRanks))
	copy(deck, DeckRanks)
	shuffleDeck(deck)

	for i, p := range r.Players {
		p.Eliminated = false
		p.Hand = append([]Card(nil), deck[i*DuelHandSize:(i+1)*DuelHandSize]...)
	}
	r.Duel = &DuelState{Turn: 0}
}

// shuffleDeck performs a uniform Fisher-Yates shuffle in place
func shuffleDeck(deck []Card) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// HandleAction processes one duel action
func (d *CardDuelEngine) HandleAction(r *Room, connID, action string, data json.RawMessage) {
	if action != MsgPlayCard {
		return
	}
	var msg PlayCardMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	d.playCard(r, connID, Card(msg.Card))
}

// playCard resolves one ply. The played card is recorded and removed from
// the hand regardless of outcome; a rank not strictly greater than the
// previous play eliminates the actor.
func (d *CardDuelEngine) playCard(r *Room, connID string, card Card) {
	s := r.Duel
	if s == nil || s.Ended {
		return
	}
	if s.Turn >= len(r.Players) || r.Players[s.Turn].ConnID != connID {
		log.Printf("duel %s: out-of-turn play from %s", r.ID, connID)
		return
	}
	p := r.Players[s.Turn]
	if p.Eliminated {
		return
	}
	idx := -1
	for i, c := range p.Hand {
		if c == card {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Printf("duel %s: %s played a card not in hand", r.ID, connID)
		return
	}

	if len(s.History) > 0 {
		prev := s.History[len(s.History)-1]
		if RankValue(card) <= RankValue(prev) {
			p.Eliminated = true
			d.host.PlayerEliminated(r, p.ConnID)
		}
	}
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	s.History = append(s.History, card)

	d.advanceTurn(r)

	alive := d.alivePlayers(r)
	if len(alive) <= 1 {
		winner := ""
		if len(alive) == 1 {
			winner = alive[0].ConnID
		}
		d.finish(r, winner)
		return
	}
	d.BroadcastState(r)
}

// advanceTurn moves the pointer to the next non-eliminated seat, wrapping
func (d *CardDuelEngine) advanceTurn(r *Room) {
	s := r.Duel
	if len(r.Players) == 0 {
		return
	}
	for i := 1; i <= len(r.Players); i++ {
		next := (s.Turn + i) % len(r.Players)
		if !r.Players[next].Eliminated {
			s.Turn = next
			return
		}
	}
}

func (d *CardDuelEngine) alivePlayers(r *Room) []*Player {
	var alive []*Player
	for _, p := range r.Players {
		if !p.Eliminated {
			alive = append(alive, p)
		}
	}
	return alive
}

// BroadcastState pushes the duel snapshot. The exposed "last played" card
// lags the most recent play by one ply so clients never see the active
// round's resolution early.
func (d *CardDuelEngine) BroadcastState(r *Room) {
	s := r.Duel
	if s == nil {
		return
	}
	snap := DuelSnapshot{
		RoomID: r.ID,
		Winner: s.Winner,
	}
	for _, p := range r.Players {
		snap.Players = append(snap.Players, DuelPlayerState{
			ID:         p.ConnID,
			Name:       p.Name,
			HandSize:   len(p.Hand),
			Eliminated: p.Eliminated,
		})
	}
	if n := len(s.History); n >= 2 {
		snap.LastPlayed = string(s.History[n-2])
		for _, c := range s.History[:n-1] {
			snap.History = append(snap.History, string(c))
		}
	}
	if s.Turn < len(r.Players) {
		snap.Turn = r.Players[s.Turn].ConnID
	}
	d.bus.EmitChannel(r.Channel(), Envelope{T: MsgMatchState, Data: snap})

	// Hands are private: each player gets only their own
	for _, p := range r.Players {
		if p.Eliminated {
			continue
		}
		cards := make([]string, len(p.Hand))
		for i, c := range p.Hand {
			cards[i] = string(c)
		}
		d.bus.EmitTo(p.ConnID, Envelope{T: MsgYourHand, Data: HandMsg{RoomID: r.ID, Cards: cards}})
	}
}

// RemovePlayer handles a disconnect or force-leave mid-duel
func (d *CardDuelEngine) RemovePlayer(r *Room, connID string) {
	s := r.Duel
	if s == nil || s.Ended {
		r.RemoveSeat(connID)
		return
	}
	wasTurn := s.Turn < len(r.Players) && r.Players[s.Turn].ConnID == connID
	p := r.FindPlayer(connID)
	if p == nil {
		return
	}
	p.Eliminated = true
	d.host.PlayerEliminated(r, p.ConnID)
	if wasTurn {
		d.advanceTurn(r)
	}
	alive := d.alivePlayers(r)
	if len(alive) <= 1 {
		winner := ""
		if len(alive) == 1 {
			winner = alive[0].ConnID
		}
		d.finish(r, winner)
		return
	}
	d.BroadcastState(r)
}

// finish records the winner and tears the match down exactly once
func (d *CardDuelEngine) finish(r *Room, winner string) {
	s := r.Duel
	if s.Ended {
		return
	}
	s.Winner = winner
	d.BroadcastState(r)
	d.bus.EmitChannel(r.Channel(), Envelope{T: MsgMatchOver, Data: MatchOverMsg{Winner: winner}})
	d.End(r)
}

// End is the idempotent cleanup for a duel room. The duel owns no timers,
// so ending only detaches the room from active bookkeeping.
func (d *CardDuelEngine) End(r *Room) {
	s := r.Duel
	if s == nil || s.Ended {
		return
	}
	s.Ended = true
	d.host.MatchEnded(r, s.Winner)
}
