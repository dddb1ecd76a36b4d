package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrInvalidPct        = errors.New("invalid rebate percentage")
)

// Limiar de segurança: nenhum crédito de rebate individual pode passar
// de 10% do stake que o originou.
var maxRebateOfStake = decimal.NewFromFloat(0.1)

// Postgres implementa o ledger de agentes e a hierarquia de agência
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de agência
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// AgentChain resolve a cadeia de agentes de um membro seguindo parent_id
// até a raiz, ordenada do agente direto para cima.
// Membro sem agente retorna lista vazia, não erro.
func (p *Postgres) AgentChain(ctx context.Context, memberUsername string) ([]ChainAgent, error) {
	var agentID sql.NullInt64
	err := p.db.QueryRowContext(ctx,
		`SELECT agent_id FROM members WHERE username = $1`, memberUsername).Scan(&agentID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("member lookup: %w", err)
	}
	if !agentID.Valid {
		return nil, nil
	}

	var chain []ChainAgent
	current := agentID.Int64
	// Limite duro de profundidade protege contra ciclo em dados corrompidos
	for depth := 0; depth < 64; depth++ {
		var a ChainAgent
		var parent sql.NullInt64
		var pct string
		err := p.db.QueryRowContext(ctx, `
			SELECT id, username, level, rebate_percentage::text, market_type, parent_id
			FROM agents WHERE id = $1`, current).Scan(
			&a.ID, &a.Username, &a.Level, &pct, &a.MarketType, &parent)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("agent lookup: %w", err)
		}
		if a.RebatePct, err = decimal.NewFromString(pct); err != nil {
			return nil, fmt.Errorf("agent %d rebate pct: %w", a.ID, err)
		}
		chain = append(chain, a)
		if !parent.Valid {
			break
		}
		current = parent.Int64
	}
	return chain, nil
}

// AdjustBalance é a primitiva de mutação de saldo em transação própria:
// lê o saldo sob lock de linha, aplica o delta, recusa saldo negativo e
// grava uma linha imutável de ledger. Ajustes administrativos entram por
// aqui; rebate e transferências compartilham o mesmo núcleo (applyDelta)
// dentro das suas transações.
func (p *Postgres) AdjustBalance(ctx context.Context, accountType string, accountID, deltaCents int64, kind, round, description string) (*Adjustment, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	adj, err := adjustTx(ctx, tx, accountType, accountID, deltaCents, kind, round, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return adj, nil
}

// adjustTx aplica a primitiva dentro de uma transação já aberta:
// mutação de saldo via applyDelta mais a linha padrão de ledger.
func adjustTx(ctx context.Context, tx *sql.Tx, accountType string, accountID, deltaCents int64, kind, round, description string) (*Adjustment, error) {
	adj, err := applyDelta(ctx, tx, accountType, accountID, deltaCents)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transaction_records
		  (user_type, user_id, transaction_type, amount_cents,
		   balance_before_cents, balance_after_cents, round, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NOW())`,
		accountType, accountID, kind, deltaCents, adj.BeforeCents, adj.AfterCents, round, description); err != nil {
		return nil, fmt.Errorf("ledger row: %w", err)
	}

	return adj, nil
}

// applyDelta é o núcleo da mutação de saldo: lê sob lock de linha,
// valida o invariante de saldo não negativo e persiste o novo saldo.
// Quem chama decide a forma da linha de ledger.
func applyDelta(ctx context.Context, tx *sql.Tx, accountType string, accountID, deltaCents int64) (*Adjustment, error) {
	table, err := balanceTable(accountType)
	if err != nil {
		return nil, err
	}

	var before int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM `+table+` WHERE id = $1 FOR UPDATE`, accountID).Scan(&before)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s %d: %w", accountType, accountID, err)
	}

	after, err := nextBalance(before, deltaCents)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET balance_cents = $1 WHERE id = $2`, after, accountID); err != nil {
		return nil, fmt.Errorf("update %s balance: %w", accountType, err)
	}

	return &Adjustment{BeforeCents: before, AfterCents: after}, nil
}

// nextBalance decide o saldo resultante de um delta. Delta que levaria o
// saldo abaixo de zero falha com ErrInsufficientFunds antes de qualquer
// escrita.
func nextBalance(before, deltaCents int64) (int64, error) {
	after := before + deltaCents
	if after < 0 {
		return 0, ErrInsufficientFunds
	}
	return after, nil
}

// claimIdempotencyKey reserva a chave de idempotência de uma requisição
// dentro da transação. Retorna false quando a chave já foi processada.
func claimIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (key) DO NOTHING`, key)
	if err != nil {
		return false, fmt.Errorf("idempotency key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func balanceTable(accountType string) (string, error) {
	switch accountType {
	case "agent":
		return "agents", nil
	case "member":
		return "members", nil
	}
	return "", fmt.Errorf("unknown account type %q", accountType)
}

// CreditRebate credita o rebate de um agente com trilha completa para
// auditoria (membro, stake e fração efetiva). Idempotente por
// (rodada, membro, agente) e pela chave de idempotência da requisição
// quando presente: repetição não paga em dobro.
func (p *Postgres) CreditRebate(ctx context.Context, agentID, amountCents int64, memberUsername string, stakeCents int64, round, idemKey string) error {
	if amountCents <= 0 {
		return fmt.Errorf("invalid rebate amount: %d", amountCents)
	}
	// Limiar de segurança contra valores anômalos
	amount := decimal.NewFromInt(amountCents)
	stake := decimal.NewFromInt(stakeCents)
	if stakeCents <= 0 || amount.GreaterThan(stake.Mul(maxRebateOfStake)) {
		return fmt.Errorf("rebate amount %d above safety threshold for stake %d", amountCents, stakeCents)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if idemKey != "" {
		claimed, err := claimIdempotencyKey(ctx, tx, idemKey)
		if err != nil {
			return err
		}
		if !claimed {
			return tx.Commit()
		}
	}

	// Guarda derivada dos dados, para requisições sem chave
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transaction_records
			WHERE round = $1 AND member_username = $2 AND user_type = 'agent'
			  AND user_id = $3 AND transaction_type = 'rebate'
		)`, round, memberUsername, agentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("rebate idempotency check: %w", err)
	}
	if exists {
		return tx.Commit()
	}

	adj, err := applyDelta(ctx, tx, "agent", agentID, amountCents)
	if err != nil {
		return err
	}

	pct := amount.Div(stake).Round(6)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transaction_records
		  (user_type, user_id, transaction_type, amount_cents,
		   balance_before_cents, balance_after_cents, round, description,
		   member_username, bet_amount_cents, rebate_pct, created_at)
		VALUES ('agent', $1, 'rebate', $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		agentID, amountCents, adj.BeforeCents, adj.AfterCents, round,
		fmt.Sprintf("rebate da rodada %s - membro %s", round, memberUsername),
		memberUsername, stakeCents, pct.String()); err != nil {
		return fmt.Errorf("rebate ledger row: %w", err)
	}

	return tx.Commit()
}

// RebateExists informa se a rodada já tem lançamento de rebate para o
// membro: a guarda primária contra pagamento duplicado no retry.
func (p *Postgres) RebateExists(ctx context.Context, round, memberUsername string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transaction_records
			WHERE round = $1 AND member_username = $2 AND transaction_type = 'rebate'
		)`, round, memberUsername).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("rebate exists: %w", err)
	}
	return exists, nil
}

// RecordPlatformResidual lança a sobra do pool retida pela plataforma.
// Lançamento só de trilha: a plataforma não mantém linha de saldo.
// Idempotente por (rodada, membro) e pela chave de idempotência da
// requisição, mesmo contrato de retry do rebate.
func (p *Postgres) RecordPlatformResidual(ctx context.Context, amountCents int64, memberUsername, round, idemKey string) error {
	if amountCents <= 0 {
		return fmt.Errorf("invalid residual amount: %d", amountCents)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if idemKey != "" {
		claimed, err := claimIdempotencyKey(ctx, tx, idemKey)
		if err != nil {
			return err
		}
		if !claimed {
			return tx.Commit()
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transaction_records
		  (user_type, user_id, transaction_type, amount_cents,
		   balance_before_cents, balance_after_cents, round, description,
		   member_username, created_at)
		SELECT 'platform', 0, 'rebate_residual', $1, 0, 0, $2, $3, $4, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM transaction_records
			WHERE round = $2 AND member_username = $4 AND transaction_type = 'rebate_residual'
		)`,
		amountCents, round,
		fmt.Sprintf("sobra de rebate da rodada %s - membro %s", round, memberUsername),
		memberUsername)
	if err != nil {
		return fmt.Errorf("platform residual row: %w", err)
	}

	return tx.Commit()
}

// Transfer move pontos entre um agente e um membro (qualquer direção)
// usando a primitiva de ajuste duas vezes na mesma transação, mais um
// registro de point_transfers com os saldos antes/depois dos dois lados.
func (p *Postgres) Transfer(ctx context.Context, fromType string, fromID int64, toType string, toID, amountCents int64, description string) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("transfer amount must be positive: %d", amountCents)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	transferID := uuid.NewString()

	from, err := adjustTx(ctx, tx, fromType, fromID, -amountCents, "transfer_out", "", description)
	if err != nil {
		return "", err
	}
	to, err := adjustTx(ctx, tx, toType, toID, amountCents, "transfer_in", "", description)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO point_transfers
		  (id, from_type, from_id, to_type, to_id, amount_cents,
		   from_before_cents, from_after_cents, to_before_cents, to_after_cents,
		   description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
		transferID, fromType, fromID, toType, toID, amountCents,
		from.BeforeCents, from.AfterCents, to.BeforeCents, to.AfterCents, description); err != nil {
		return "", fmt.Errorf("point transfer row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return transferID, nil
}

// SetRebatePct configura a fração de rebate de um agente, validando o
// invariante "fração do filho <= fração do pai" na configuração em vez
// de deixar o alocador absorver o erro em silêncio.
func (p *Postgres) SetRebatePct(ctx context.Context, agentID int64, pct decimal.Decimal) error {
	if pct.IsNegative() {
		return fmt.Errorf("%w: negative", ErrInvalidPct)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var parent sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT parent_id FROM agents WHERE id = $1 FOR UPDATE`, agentID).Scan(&parent)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if parent.Valid {
		var parentPct string
		if err := tx.QueryRowContext(ctx,
			`SELECT rebate_percentage::text FROM agents WHERE id = $1`, parent.Int64).Scan(&parentPct); err != nil {
			return fmt.Errorf("parent pct: %w", err)
		}
		pp, err := decimal.NewFromString(parentPct)
		if err != nil {
			return fmt.Errorf("parent pct: %w", err)
		}
		if pct.GreaterThan(pp) {
			return fmt.Errorf("%w: %s exceeds parent %s", ErrInvalidPct, pct, pp)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET rebate_percentage = $1 WHERE id = $2`, pct.String(), agentID); err != nil {
		return err
	}

	return tx.Commit()
}
