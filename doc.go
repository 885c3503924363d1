// Package capgains computes capital gains taxes on a portfolio of assets.
//
// It is built around three pure pieces and an engine that binds them to a store:
//   - Tax lots: every purchase is a lot, consumed oldest first (FIFO) when selling.
//     Each lot slice sold carries its own holding period, gain and exemption.
//   - Exemption classifier: crypto and precious metals held more than 365 days are
//     tax free, fund gains are partially exempt depending on the fund category,
//     stock gains are fully taxable.
//   - Tax aggregator: folds the events of a year into category totals, nets stock
//     losses (including the carryforward from previous years), applies the saver's
//     allowance, the effective rate and the withholding tax credit.
//
// The Engine reads through the Store port and writes sale results atomically with
// optimistic locking on lot versions. The memstore and sqlstore packages provide
// implementations of the port.
//
// This package serves as the foundational logic for the `cgt` command-line tool.
package capgains
