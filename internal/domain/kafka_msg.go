package domain

type KafkaMessage struct {
	Key     string
	Payload []byte
	Topic   string
	// Attempts counts failed writes so far, carried into the DLQ row
	Attempts int
	// DlqID is set when the message was loaded back from the DLQ table
	DlqID int64
}
