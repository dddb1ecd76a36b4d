package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Judge decide o veredito de uma aposta durante a liquidação.
// Erros de avaliação de uma aposta individual são tratados pelo chamador
// como derrota, nunca abortando o lote.
type Judge func(bet Bet) (won bool, winCents int64, reason string)

// Postgres implementa a persistência de liquidação no banco dos apostadores
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de liquidação
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// SettleRound executa a transação de liquidação de uma rodada:
// seleciona apostas não liquidadas com lock de linha (SKIP LOCKED, então
// uma tentativa concorrente na mesma rodada vê zero linhas e vira no-op),
// avalia cada uma, atualiza tudo em um único UPDATE e aplica um crédito
// por cliente vencedor com sua linha de ledger. Tudo ou nada.
func (p *Postgres) SettleRound(ctx context.Context, round string, judge Judge) (*SettleOutcome, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settle tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT b.id, b.username, b.bet_type, b.bet_value, COALESCE(b.position, 0),
		       b.amount_cents, COALESCE(b.odds, 0),
		       m.id, m.balance_cents, m.market_type
		FROM bets b
		INNER JOIN members m ON m.username = b.username
		WHERE b.round = $1 AND b.settled = false
		FOR UPDATE OF b, m SKIP LOCKED`, round)
	if err != nil {
		return nil, fmt.Errorf("select unsettled: %w", err)
	}

	var bets []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.Username, &b.BetType, &b.BetValue, &b.Position,
			&b.AmountCents, &b.Odds, &b.MemberID, &b.BalanceCents, &b.MarketType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b.Round = round
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Sem apostas pendentes: no-op idempotente
	if len(bets) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &SettleOutcome{}, nil
	}

	tally := newRoundTally(len(bets))
	for _, b := range bets {
		won, winCents, _ := judge(b)
		tally.add(b, won, winCents)
	}
	out := &tally.outcome
	credits := tally.credits

	// Atualização em lote do estado de liquidação
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE bets AS b
		SET won = u.won, win_amount_cents = u.win_cents, settled = true, settled_at = NOW()
		FROM (VALUES %s) AS u(id, won, win_cents)
		WHERE b.id = u.id`, strings.Join(tally.values, ",")))
	if err != nil {
		return nil, fmt.Errorf("bulk update bets: %w", err)
	}

	// Um único crédito e uma única linha de ledger por cliente vencedor,
	// agregando as N apostas premiadas da rodada
	for username, c := range credits {
		after := c.balanceCents + c.winCents
		if _, err := tx.ExecContext(ctx,
			`UPDATE members SET balance_cents = $1 WHERE id = $2`, after, c.memberID); err != nil {
			return nil, fmt.Errorf("credit member %s: %w", username, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_records
			  (user_type, user_id, transaction_type, amount_cents,
			   balance_before_cents, balance_after_cents, round, description, created_at)
			VALUES ('member', $1, 'win', $2, $3, $4, $5, $6, NOW())`,
			c.memberID, c.winCents, c.balanceCents, after, round,
			fmt.Sprintf("rodada %s: %d apostas premiadas", round, c.winBets)); err != nil {
			return nil, fmt.Errorf("ledger member %s: %w", username, err)
		}
	}

	// Log de liquidação da rodada
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settlement_logs (round, settled_count, win_count, total_win_cents, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		round, out.SettledCount, out.WinCount, out.TotalWinCents); err != nil {
		return nil, fmt.Errorf("settlement log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settle tx: %w", err)
	}
	return out, nil
}

type memberCredit struct {
	memberID     int64
	balanceCents int64
	winCents     int64
	winBets      int
}

// roundTally acumula os vereditos de uma rodada: desfecho agregado,
// tuplas do UPDATE em lote e um crédito por cliente vencedor.
type roundTally struct {
	outcome SettleOutcome
	credits map[string]*memberCredit
	values  []string
}

func newRoundTally(n int) *roundTally {
	return &roundTally{credits: map[string]*memberCredit{}, values: make([]string, 0, n)}
}

// add registra o veredito de uma aposta. O veredito persiste como veio
// do juiz: vitória com prêmio zero grava won=true e win_amount=0, sem
// gerar crédito.
func (t *roundTally) add(b Bet, won bool, winCents int64) {
	if won {
		t.outcome.WinCount++
		if winCents > 0 {
			t.outcome.TotalWinCents += winCents
			c := t.credits[b.Username]
			if c == nil {
				c = &memberCredit{memberID: b.MemberID, balanceCents: b.BalanceCents}
				t.credits[b.Username] = c
			}
			c.winCents += winCents
			c.winBets++
		}
	}
	t.outcome.SettledCount++
	t.values = append(t.values, fmt.Sprintf("(%d, %t, %d)", b.ID, won, winCents))
}

// StakeTotalsByCustomer retorna o total apostado por cliente em uma rodada
// já liquidada, insumo da distribuição de rebate.
func (p *Postgres) StakeTotalsByCustomer(ctx context.Context, round string) ([]CustomerStake, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT username, SUM(amount_cents)
		FROM bets
		WHERE round = $1 AND settled = true
		GROUP BY username`, round)
	if err != nil {
		return nil, fmt.Errorf("stake totals: %w", err)
	}
	defer rows.Close()

	var out []CustomerStake
	for rows.Next() {
		var cs CustomerStake
		if err := rows.Scan(&cs.Username, &cs.StakeCents); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// LedgerEntries expõe a trilha de auditoria para reconciliação.
// Append-only: nenhuma rota de escrita além dos INSERTs transacionais.
func (p *Postgres) LedgerEntries(ctx context.Context, userType string, userID int64, limit int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_type, user_id, transaction_type, amount_cents,
		       balance_before_cents, balance_after_cents, COALESCE(round, ''), description, created_at
		FROM transaction_records
		WHERE user_type = $1 AND user_id = $2
		ORDER BY id DESC
		LIMIT $3`, userType, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserType, &e.UserID, &e.Kind, &e.AmountCents,
			&e.BalanceBeforeCents, &e.BalanceAfterCents, &e.Round, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
