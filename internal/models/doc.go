// Package models defines the core domain entities for RachaJunto.
//
// # Entities
//
//   - User: a registered account with a public profile (name, username, avatar)
//   - Group: a circle of people who share recurring expenses
//   - GroupMember: one user's membership in a group, with a role and soft removal
//   - FinancialPool: a shared expense ("rateio") to be split among participants
//   - PoolParticipant: one user's share of a pool and their payment status
//   - Withdrawal: a wallet payout requested by a pool creator
//
// # Design Principles
//
//  1. Amounts are money.Money (integer cents), never float64.
//  2. Closed enumerations (Role, PoolType, Frequency, PoolStatus) parse from
//     their storage strings exactly once, at the persistence boundary. Code
//     past that boundary switches on typed constants, not raw strings.
//  3. Optional timestamps (PaidAt, LeftAt) are Unix seconds with zero meaning
//     "not set"; the paired boolean flags must agree with them.
//  4. Relationships use ID strings rather than pointers to avoid cycles.
package models
