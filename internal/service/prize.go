package service

import (
	"sort"

	"stake-arena/internal/model"
)

// Basis-point denominator for commission and prize arithmetic.
const bpsDenominator = 10000

// Per-game averages are scaled by 1000 before integer division so close
// averages stay distinguishable.
const normalizedScoreScale = 1000

// Commission returns the platform share of a settled pool,
// floor(rate * total / 10000).
func Commission(commissionRateBps, totalStake int64) int64 {
	return commissionRateBps * totalStake / bpsDenominator
}

// PositionPrizes returns the three-slot prize weight table for 1st, 2nd and
// 3rd place, in basis points of the pre-commission pool. The weights split
// the payable share 50/34/16, so they sum to 10000-rate modulo the integer
// truncation of each slot.
func PositionPrizes(commissionRateBps int64) [3]int64 {
	payable := bpsDenominator - commissionRateBps
	return [3]int64{
		5 * payable / 10,
		34 * payable / 100,
		16 * payable / 100,
	}
}

// prizeAmount converts one slot weight into token minor units.
func prizeAmount(weightBps, totalStake int64) int64 {
	return weightBps * totalStake / bpsDenominator
}

// normalizedScore is the ranking key: cumulative score scaled per game
// played. Callers must not pass gamesPlayed == 0.
func normalizedScore(score, gamesPlayed int64) int64 {
	return score * normalizedScoreScale / gamesPlayed
}

// rankPlayers returns the players ordered best-first by normalized per-game
// score. A player who never played ranks below every player who did, no
// matter the scores. The sort is stable, so equal averages and the
// never-played group keep join order.
func rankPlayers(players []model.TournamentPlayer) []model.TournamentPlayer {
	ranked := make([]model.TournamentPlayer, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.GamesPlayed == 0 || b.GamesPlayed == 0 {
			return a.GamesPlayed != 0 && b.GamesPlayed == 0
		}
		return normalizedScore(a.Score, a.GamesPlayed) > normalizedScore(b.Score, b.GamesPlayed)
	})

	return ranked
}
