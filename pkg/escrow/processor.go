package escrow

import (
	"crypto/ed25519"

	"github.com/sirupsen/logrus"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
)

// AccountAllocator is the storage-allocation collaborator: it allocates
// program-owned record storage against a deposit and destroys it again.
type AccountAllocator interface {
	MinimumBalance(size int) uint64
	CreateAccount(payer, account *ledger.Account, lamports, space uint64, owner ed25519.PublicKey, auth ledger.Authorization) error
	Deallocate(account, destination *ledger.Account)
}

// TokenLedger is the asset-ledger collaborator consumed by the handlers.
type TokenLedger interface {
	Transfer(source, dest *ledger.Account, auth ledger.Authorization, amount uint64) error
	CloseAccount(account, destination *ledger.Account, auth ledger.Authorization) error
	CreateAssociatedAccount(payer *ledger.Account, wallet, mint ed25519.PublicKey) (*ledger.Account, error)
	CreateAssociatedAccountIfNeeded(payer *ledger.Account, wallet, mint ed25519.PublicKey) (*ledger.Account, error)
	Balance(account *ledger.Account) (uint64, error)
}

// Processor routes incoming (discriminator, payload, account list) tuples
// to the Make, Take and Refund handlers.
type Processor struct {
	log    *logrus.Entry
	system AccountAllocator
	token  TokenLedger
}

func NewProcessor(system AccountAllocator, token TokenLedger) *Processor {
	return &Processor{
		log:    logrus.StandardLogger().WithField("type", "escrow/processor"),
		system: system,
		token:  token,
	}
}

// Process executes one instruction. It performs no side effects itself;
// the selected handler validates every account before the first mutation.
// The caller is expected to run Process inside the host's atomic
// execution scope so a failed instruction leaves no state behind.
func (p *Processor) Process(accounts []*ledger.Account, data []byte) error {
	if len(data) == 0 {
		return program.ErrInvalidInstructionData
	}

	log := p.log.WithFields(logrus.Fields{
		"command":  data[0],
		"accounts": len(accounts),
	})

	switch Command(data[0]) {
	case CommandMake:
		var args MakeInstructionArgs
		if err := args.Unmarshal(data[1:]); err != nil {
			return err
		}
		log.Debug("processing make")
		return p.make(accounts, &args)
	case CommandTake:
		log.Debug("processing take")
		return p.take(accounts)
	case CommandRefund:
		log.Debug("processing refund")
		return p.refund(accounts)
	default:
		return program.ErrInvalidInstructionData
	}
}
