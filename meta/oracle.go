package meta

import "math/big"

// 喂价轮次数据，与 AggregatorV3Interface.latestRoundData 的返回值一一对应
type RoundData struct {
	RoundId         *big.Int `json:"round_id"`
	Answer          *big.Int `json:"answer"`
	StartedAt       *big.Int `json:"started_at"`
	UpdatedAt       *big.Int `json:"updated_at"`
	AnsweredInRound *big.Int `json:"answered_in_round"`
}
