package repository

import (
	ledgerRepo "mastermatch/database/repository/ledger"
	technicianRepo "mastermatch/database/repository/technician"
)

// Re-export the TechnicianRepository interface and constructor.
type TechnicianRepository = technicianRepo.TechnicianRepository

type CandidateCriteria = technicianRepo.CandidateCriteria

var NewMongoTechnicianRepo = technicianRepo.NewMongoTechnicianRepo

// Re-export the LedgerRepository interface and constructor.
type LedgerRepository = ledgerRepo.LedgerRepository

var NewMongoLedgerRepo = ledgerRepo.NewMongoLedgerRepo
