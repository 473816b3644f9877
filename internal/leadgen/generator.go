package leadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/mmatheygr/lead-scoring/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1_000_000
	personaDivisor     = 8
)

// Persona cases. The mix skews toward casual visitors the way real lead
// lists do, with a thin band of hot leads at the top.
const (
	caseCasualVisitor = 0
	caseColdLead      = 1
	caseWarmLead      = 2
	caseHotLead       = 3
	caseDormant       = 4
	caseNewSignup     = 5
	caseHighIncome    = 6
	caseWildcard      = 7
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateLeads creates the configured number of leads with unique customer IDs.
func generateLeads(ctx context.Context, config *Config, stats *Stats) ([]Lead, error) {
	logger.Get().Info(ctx, "generating leads with unique customer IDs", logger.Int("numLeads", config.NumLeads))

	leads := make([]Lead, config.NumLeads)

	customerIDs := make([]string, config.NumLeads)
	for i := 0; i < config.NumLeads; i++ {
		customerIDs[i] = uuid.New().String()
	}

	type leadResult struct {
		index int
		lead  Lead
		err   error
	}

	resultChan := make(chan leadResult, config.NumLeads)

	workerCount := minInt(config.Workers, config.NumLeads)
	leadsPerWorker := config.NumLeads / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * leadsPerWorker
		end := start + leadsPerWorker
		if worker == workerCount-1 {
			end = config.NumLeads // Last worker gets remaining leads
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- leadResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- leadResult{index: i, lead: generateSingleLead(customerIDs[i])}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumLeads; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during lead generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate lead %d: %w", result.index, result.err)
			}
			leads[result.index] = result.lead
		}
	}

	stats.LeadsGenerated = len(leads)
	logger.Get().Info(ctx, "generated leads successfully", logger.Int("count", len(leads)))

	return leads, nil
}

// generateSingleLead creates one lead from a randomly picked persona.
func generateSingleLead(customerID string) Lead {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(personaDivisor))

	l := Lead{CustomerID: customerID}
	switch randNum.Int64() {
	case caseCasualVisitor:
		l.Age = 20 + getRandomFloat()*40
		l.Income = 30_000 + getRandomFloat()*40_000
		l.Visits = getRandomFloat() * 5
		l.EmailOpens = getRandomFloat() * 3
		l.LastContactDays = 10 + getRandomFloat()*50
	case caseColdLead:
		l.Age = 18 + getRandomFloat()*50
		l.Income = 20_000 + getRandomFloat()*30_000
		l.Visits = getRandomFloat() * 2
		l.EmailOpens = 0
		l.LastContactDays = 60 + getRandomFloat()*120
	case caseWarmLead:
		l.Age = 25 + getRandomFloat()*30
		l.Income = 50_000 + getRandomFloat()*50_000
		l.Visits = 5 + getRandomFloat()*10
		l.EmailOpens = 3 + getRandomFloat()*7
		l.LastContactDays = 3 + getRandomFloat()*14
	case caseHotLead:
		l.Age = 30 + getRandomFloat()*25
		l.Income = 80_000 + getRandomFloat()*80_000
		l.Visits = 15 + getRandomFloat()*15
		l.EmailOpens = 8 + getRandomFloat()*12
		l.LastContactDays = getRandomFloat() * 3
	case caseDormant:
		l.Age = 30 + getRandomFloat()*40
		l.Income = 40_000 + getRandomFloat()*40_000
		l.Visits = getRandomFloat()
		l.EmailOpens = 0
		l.LastContactDays = 180 + getRandomFloat()*180
	case caseNewSignup:
		l.Age = 18 + getRandomFloat()*20
		l.Income = 25_000 + getRandomFloat()*35_000
		l.Visits = 1 + getRandomFloat()*3
		l.EmailOpens = getRandomFloat() * 2
		l.LastContactDays = getRandomFloat() * 2
	case caseHighIncome:
		l.Age = 40 + getRandomFloat()*20
		l.Income = 150_000 + getRandomFloat()*150_000
		l.Visits = 2 + getRandomFloat()*8
		l.EmailOpens = 1 + getRandomFloat()*5
		l.LastContactDays = 5 + getRandomFloat()*30
	default: // caseWildcard
		l.Age = 18 + getRandomFloat()*60
		l.Income = 20_000 + getRandomFloat()*200_000
		l.Visits = getRandomFloat() * 30
		l.EmailOpens = getRandomFloat() * 20
		l.LastContactDays = getRandomFloat() * 365
	}
	return l
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
