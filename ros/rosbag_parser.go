// Package ros reads recorded depth camera sessions out of ROS bags.
package ros

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// TopicKey returns the key gobag files the messages of topic under: lower case, without the leading
// slash and with the remaining slashes replaced by underscores.
func TopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// TopicInfo describes one topic of a bag.
type TopicInfo struct {
	Topic    string
	Type     string
	Messages int
}

// Topics lists the topics of a bag sorted by name, with their message counts.
func Topics(rb *rosbag.RosBag) []TopicInfo {
	counts := map[int32]int{}
	for _, idx := range rb.Indexes {
		for _, data := range idx.Index {
			counts[data.ConnectionID] += len(data.OffsetArray)
		}
	}
	byTopic := map[string]*TopicInfo{}
	for id, conn := range rb.Connections {
		info, ok := byTopic[conn.HeaderTopic]
		if !ok {
			info = &TopicInfo{Topic: conn.HeaderTopic, Type: conn.ConnectionType}
			byTopic[conn.HeaderTopic] = info
		}
		info.Messages += counts[id]
	}
	topics := make([]TopicInfo, 0, len(byTopic))
	for _, info := range byTopic {
		topics = append(topics, *info)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Topic < topics[j].Topic })
	return topics
}

// Message is one message of a topic as JSON.
type Message struct {
	Meta Stamp
	Data json.RawMessage
}

// Decode unmarshals the message data into v.
func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

// ParseMessages reads the newline separated JSON messages gobag produces for a topic.
func ParseMessages(r io.Reader) ([]Message, error) {
	var all []Message
	reader := bufio.NewReader(r)
	for {
		data, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(data)) > 0 {
			var message Message
			if err := json.Unmarshal(data, &message); err != nil {
				return nil, errors.Wrapf(err, "message %d", len(all))
			}
			all = append(all, message)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return all, nil
			}
			return nil, err
		}
	}
}

// MessagesForTopics parses the messages of the given topics. A topic without messages maps to nil.
func MessagesForTopics(rb *rosbag.RosBag, topics ...string) (map[string][]Message, error) {
	wanted := map[string]bool{}
	for _, topic := range topics {
		wanted[topic] = true
	}
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return wanted[t] },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	all := map[string][]Message{}
	for _, topic := range topics {
		buf := rb.TopicsAsJSON[TopicKey(topic)]
		if buf == nil {
			all[topic] = nil
			continue
		}
		msgs, err := ParseMessages(buf)
		if err != nil {
			return nil, errors.Wrapf(err, "topic %s", topic)
		}
		all[topic] = msgs
	}
	return all, nil
}

// AllMessagesForTopic returns all messages for a specific topic in the ros bag.
func AllMessagesForTopic(rb *rosbag.RosBag, topic string) ([]Message, error) {
	all, err := MessagesForTopics(rb, topic)
	if err != nil {
		return nil, err
	}
	if all[topic] == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return all[topic], nil
}
