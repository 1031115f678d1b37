package service

import (
	"freightdispatch/pkg/logger"
	"freightdispatch/storage"
)

type IServiceManager interface {
	Lifecycle() LifecycleService
	Assignment() AssignmentService
	Analytics() AnalyticsService
}

type service struct {
	lifecycleService  LifecycleService
	assignmentService AssignmentService
	analyticsService  AnalyticsService
}

func New(stg storage.IStorage, log logger.ILogger) IServiceManager {
	return &service{
		lifecycleService:  NewLifecycleService(stg, log),
		assignmentService: NewAssignmentService(stg, log, FIFORanker{}),
		analyticsService:  NewAnalyticsService(stg, log),
	}
}

func (s *service) Lifecycle() LifecycleService {
	return s.lifecycleService
}

func (s *service) Assignment() AssignmentService {
	return s.assignmentService
}

func (s *service) Analytics() AnalyticsService {
	return s.analyticsService
}
