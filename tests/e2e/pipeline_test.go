package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosh/internal/ingest"
	"kosh/internal/transaction"
	"kosh/pkg/models"
)

const (
	kafkaBroker            = "localhost:29092"
	inboundTopic           = "inbound_sms"
	transactionWaitTimeout = 30 * time.Second
)

func TestSMSPipelineEndToEnd(t *testing.T) {
	timestamp := time.Now().UnixMilli()
	body := fmt.Sprintf("Rs. 321.00 debited from A/c XX4321 via UPI to E2E Vendor ref %d", timestamp)

	msg := models.NewInboundSMS("HDFCBK", body, timestamp, "device")
	require.NoError(t, sendSMSToKafka(t, msg))

	tx := waitForTransaction(t, body)
	require.NotNil(t, tx, "bank alert should become a transaction")

	assert.Equal(t, transaction.DirectionExpense, tx.Direction)
	assert.Equal(t, "321", tx.Amount.String())
	assert.True(t, tx.FromSMS)
	assert.Equal(t, body, tx.SMSBody)

	// Redelivery of the identical alert is deduplicated.
	require.NoError(t, sendSMSToKafka(t, models.NewInboundSMS("HDFCBK", body, timestamp, "device")))
	time.Sleep(5 * time.Second)

	assert.Equal(t, 1, countTransactionsWithBody(t, body))
}

func TestNonFinancialSMSIgnored(t *testing.T) {
	timestamp := time.Now().UnixMilli()
	body := fmt.Sprintf("lunch at 1 tomorrow? ref %d", timestamp)

	require.NoError(t, sendSMSToKafka(t, models.NewInboundSMS("FRIEND", body, timestamp, "device")))
	time.Sleep(5 * time.Second)

	assert.Equal(t, 0, countTransactionsWithBody(t, body))
}

func TestScanAndCommitFlow(t *testing.T) {
	timestamp := time.Now().UnixMilli()
	body := fmt.Sprintf("INR 1500.00 credited to A/c XX8765 by IMPS from E2E PAYER ref %d", timestamp)

	// The message API archives without auto-committing a transaction, so the
	// draft flow below is what turns it into one.
	resp := postJSON(t, fmt.Sprintf("%s/api/v1/ingest/messages", ingestServiceURL), ingest.IngestMessageRequest{
		Sender:    "ICICIB",
		Body:      body,
		Timestamp: timestamp,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	scanResp := postJSON(t, fmt.Sprintf("%s/api/v1/ingest/scan", ingestServiceURL), nil)
	defer scanResp.Body.Close()
	require.Equal(t, http.StatusOK, scanResp.StatusCode)

	var scan ingest.ScanResult
	require.NoError(t, json.NewDecoder(scanResp.Body).Decode(&scan))
	require.NotEmpty(t, scan.Drafts)

	found := false
	for _, draft := range scan.Drafts {
		if draft.Parsed.SourceText == body {
			found = true
			assert.True(t, draft.Selected, "fresh drafts start selected")
		}
	}
	require.True(t, found, "posted message should appear as a draft")

	commitResp := postJSON(t, fmt.Sprintf("%s/api/v1/ingest/drafts/commit", ingestServiceURL), nil)
	defer commitResp.Body.Close()
	require.Equal(t, http.StatusOK, commitResp.StatusCode)

	var commit ingest.CommitResult
	require.NoError(t, json.NewDecoder(commitResp.Body).Decode(&commit))
	assert.GreaterOrEqual(t, commit.Committed, 1)

	assert.Equal(t, 1, countTransactionsWithBody(t, body))
}

func sendSMSToKafka(t *testing.T, msg models.InboundSMS) error {
	t.Helper()

	writer := &kafka.Writer{
		Addr:     kafka.TCP(kafkaBroker),
		Topic:    inboundTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer writer.Close()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ID),
		Value: data,
	})
}

func waitForTransaction(t *testing.T, smsBody string) *transaction.WithTags {
	t.Helper()

	deadline := time.Now().Add(transactionWaitTimeout)
	for time.Now().Before(deadline) {
		for _, tx := range listTransactions(t) {
			if tx.SMSBody == smsBody {
				found := tx
				return &found
			}
		}
		time.Sleep(time.Second)
	}
	return nil
}

func countTransactionsWithBody(t *testing.T, smsBody string) int {
	t.Helper()

	count := 0
	for _, tx := range listTransactions(t) {
		if tx.SMSBody == smsBody {
			count++
		}
	}
	return count
}
