package ingest

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"historyScope/internal/model"
)

func buildLogRecords(logs []model.TxLog) []model.LogRecord {
	records := make([]model.LogRecord, 0, len(logs))
	for _, l := range logs {
		topics := make([]string, 0, len(l.Topics))
		for _, topic := range l.Topics {
			topics = append(topics, topic.Hex())
		}
		records = append(records, model.LogRecord{
			Address:  l.Address.Hex(),
			Topics:   topics,
			Data:     hexutil.Encode(l.Data),
			LogIndex: l.LogIndex,
		})
	}
	return records
}

func buildDecodedTransaction(tx model.Transaction, events []model.HistoryEvent, logs []model.TxLog) model.DecodedTransaction {
	if events == nil {
		events = []model.HistoryEvent{}
	}
	return model.DecodedTransaction{
		ChainID: tx.ChainID,
		TxHash:  tx.Hash.Hex(),
		Events:  events,
		Logs:    buildLogRecords(logs),
	}
}
