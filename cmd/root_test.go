package cmd

import (
	"testing"

	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/log"
)

func testConfig() *config.Config {
	return &config.Config{
		Provider:      config.ProviderOllama,
		ModelName:     "llama3.1:8b",
		EmbedderModel: "all-minilm",
		OllamaHost:    "http://localhost:11434",
		StoreDir:      "/tmp/answerdock-test",
		HTTPAddr:      "127.0.0.1:0",
		Retrieval:     config.Retrieval{TopK: 8, MaxDistance: 1.8},
		Chunking:      config.Chunking{TargetWords: 250, OverlapParagraphs: 1, MinParagraphWords: 30},
		Session:       config.Session{Capacity: 6},
	}
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd(testConfig(), log.NewNop())

	want := []string{"serve", "ingest", "ask", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	cmd := NewAskCmd(testConfig(), log.NewNop())
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("ask accepted zero arguments")
	}
	if err := cmd.Args(cmd, []string{"what is this?"}); err != nil {
		t.Errorf("ask rejected a question: %v", err)
	}
}

func TestIngestRequiresPath(t *testing.T) {
	cmd := NewIngestCmd(testConfig(), log.NewNop())
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("ingest accepted zero arguments")
	}
}
