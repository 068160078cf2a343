package testdata

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// Acquisition channels and landing pages used by generated submissions
var (
	sourceChannels = []string{"facebook", "google", "instagram", "linkedin", "referral", "organic"}

	originatingPages = []string{"landing-fb", "landing-google", "landing-main", "pricing", "blog-footer"}

	goals = []string{
		"aumentare-vendite",
		"generare-contatti",
		"migliorare-seo",
		"lanciare-prodotto",
		"brand-awareness",
	}

	organizationSuffixes = []string{"SRL", "SpA", "SNC", "& Co", "Group"}
)

// GeneratorConfig configures submission generation
type GeneratorConfig struct {
	Seed        int64
	PhoneChance float64 // probability the contact channel is a phone, rest are emails
}

// Generator produces fake lead submissions for tests and seeding
type Generator struct {
	faker       *gofakeit.Faker
	phoneChance float64
}

// NewGenerator creates a new submission generator
func NewGenerator(cfg GeneratorConfig) *Generator {
	phoneChance := cfg.PhoneChance
	if phoneChance <= 0 {
		phoneChance = 0.7
	}
	return &Generator{
		faker:       gofakeit.New(cfg.Seed),
		phoneChance: phoneChance,
	}
}

// Submission generates one realistic lead submission
func (g *Generator) Submission() models.SubmitLeadRequest {
	contactChannel := g.faker.Email()
	if g.faker.Float64Range(0, 1) < g.phoneChance {
		contactChannel = fmt.Sprintf("+393%08d", g.faker.Number(10000000, 99999999))
	}

	return models.SubmitLeadRequest{
		ContactName:     g.faker.Name(),
		Organization:    fmt.Sprintf("%s %s", g.faker.Company(), g.faker.RandomString(organizationSuffixes)),
		ContactChannel:  contactChannel,
		Goal:            g.faker.RandomString(goals),
		SourceChannel:   g.faker.RandomString(sourceChannels),
		OriginatingPage: g.faker.RandomString(originatingPages),
	}
}

// Submissions generates n lead submissions
func (g *Generator) Submissions(n int) []models.SubmitLeadRequest {
	out := make([]models.SubmitLeadRequest, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Submission())
	}
	return out
}
