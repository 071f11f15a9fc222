// Command score-producer publishes synthetic score submissions to Kafka
// for load-testing the ingest path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Submission mirrors the ledger's submission message format.
type Submission struct {
	GameSlug     string `json:"game_slug"`
	Score        int64  `json:"score"`
	Initials     string `json:"initials"`
	LevelReached string `json:"level_reached,omitempty"`
}

type gameProfile struct {
	slug    string
	ceiling int64
	levels  []string
}

var games = []gameProfile{
	{"contra", 10000000, []string{"1", "2", "3", "4", "5", "6", "7", "8"}},
	{"pacman", 5000000, []string{"1", "5", "9", "13", "17", "21", "256"}},
	{"galaga", 3000000, []string{"1", "5", "10", "15", "20", "25", "30"}},
	{"donkey-kong", 2000000, []string{"25m", "50m", "75m", "100m"}},
}

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomInitials(rng *rand.Rand) string {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		b.WriteByte(letters[rng.Intn(len(letters))])
	}
	return b.String()
}

func randomSubmission(rng *rand.Rand) Submission {
	game := games[rng.Intn(len(games))]
	return Submission{
		GameSlug: game.slug,
		// Scores cluster well below the ceiling; the occasional outlier
		// exercises the ceiling rejection on the consumer side.
		Score:        1 + rng.Int63n(game.ceiling/4),
		Initials:     randomInitials(rng),
		LevelReached: game.levels[rng.Intn(len(game.levels))],
	}
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "arcade-scores", "Kafka topic")
	rate := flag.Int("rate", 10, "Submissions per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")
	rng := rand.New(rand.NewSource(*seed))

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("creating producer: %v", err)
	}
	defer producer.Close()

	fmt.Printf("producing to %s (topic %s) at %d/s\n", *brokers, *topic, *rate)

	var sent, failed int64

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	start := time.Now()
loop:
	for {
		select {
		case <-quit:
			break loop
		case <-deadline:
			break loop
		case <-ticker.C:
			sub := randomSubmission(rng)
			payload, err := json.Marshal(sub)
			if err != nil {
				log.Printf("marshaling submission: %v", err)
				continue
			}

			msg := &sarama.ProducerMessage{
				Topic: *topic,
				Key:   sarama.StringEncoder(uuid.New().String()),
				Value: sarama.ByteEncoder(payload),
			}
			if _, _, err := producer.SendMessage(msg); err != nil {
				atomic.AddInt64(&failed, 1)
				log.Printf("sending message: %v", err)
				continue
			}
			atomic.AddInt64(&sent, 1)
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("done: sent=%d failed=%d in %s\n",
		atomic.LoadInt64(&sent), atomic.LoadInt64(&failed), elapsed.Round(time.Second))
}
