package bus

import "encoding/json"

func encodeEnvelope(topic, source string, payload []byte) ([]byte, error) {
	return json.Marshal(wireEnvelope{Topic: topic, Source: source, Payload: payload})
}

func decodeEnvelope(b []byte) (wireEnvelope, error) {
	var env wireEnvelope
	err := json.Unmarshal(b, &env)
	return env, err
}
